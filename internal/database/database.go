package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"crashpit/internal/game"
)

// Service is the round archive: every crashed or aborted round and its bet
// settlements land here for audit and verification.
type Service interface {
	Health() map[string]string
	Close() error

	RecordRound(ctx context.Context, record game.RoundRecord) error
	RecordSettlement(ctx context.Context, roundID string, bet game.Bet) error
	RecentRounds(ctx context.Context, limit int) ([]game.RoundRecord, error)
}

type service struct {
	db *pgxpool.Pool
}

var (
	database   = os.Getenv("BLUEPRINT_DB_DATABASE")
	password   = os.Getenv("BLUEPRINT_DB_PASSWORD")
	username   = os.Getenv("BLUEPRINT_DB_USERNAME")
	port       = os.Getenv("BLUEPRINT_DB_PORT")
	host       = os.Getenv("BLUEPRINT_DB_HOST")
	schema     = os.Getenv("BLUEPRINT_DB_SCHEMA")
	dbInstance *service
)

func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("[DB] Failed to create connection pool: %v", err)
	}

	dbInstance = &service{
		db: pool,
	}
	return dbInstance
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	poolStats := s.db.Stat()
	stats["total_conns"] = strconv.FormatInt(int64(poolStats.TotalConns()), 10)
	stats["idle_conns"] = strconv.FormatInt(int64(poolStats.IdleConns()), 10)
	stats["acquired_conns"] = strconv.FormatInt(int64(poolStats.AcquiredConns()), 10)
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)

	return stats
}

func (s *service) Close() error {
	log.Printf("[DB] Disconnecting from database: %s", database)
	s.db.Close()
	return nil
}

// RecordRound archives one finished round. Writes are idempotent on the
// round ID so a retried persistence pass never duplicates rows.
func (s *service) RecordRound(ctx context.Context, record game.RoundRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rounds (round_id, crash_multiplier, server_seed, server_seed_hash, client_seed, nonce, house_edge, aborted, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (round_id) DO NOTHING`,
		record.RoundID, record.CrashMultiplier, record.ServerSeed, record.ServerSeedHash,
		record.ClientSeed, record.Nonce, record.HouseEdge, record.Aborted, record.StartedAt, record.EndedAt)
	if err != nil {
		return fmt.Errorf("recording round %s: %w", record.RoundID, err)
	}
	return nil
}

func (s *service) RecordSettlement(ctx context.Context, roundID string, bet game.Bet) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bet_settlements (bet_id, round_id, participant_id, kind, stake, auto_cashout, status, result_multiplier, payout, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (bet_id) DO NOTHING`,
		bet.ID, roundID, bet.ParticipantID, string(bet.Kind), bet.Stake, bet.AutoCashout,
		string(bet.Status), bet.ResultMultiplier, bet.Payout(), bet.PlacedAt)
	if err != nil {
		return fmt.Errorf("recording settlement %s: %w", bet.ID, err)
	}
	return nil
}

// RecentRounds returns archived rounds, most recent first. Server seeds are
// included: every archived round has already been revealed.
func (s *service) RecentRounds(ctx context.Context, limit int) ([]game.RoundRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT round_id, crash_multiplier, server_seed, server_seed_hash, client_seed, nonce, house_edge, aborted, started_at, ended_at
		FROM rounds
		ORDER BY ended_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent rounds: %w", err)
	}
	defer rows.Close()

	var records []game.RoundRecord
	for rows.Next() {
		var r game.RoundRecord
		if err := rows.Scan(&r.RoundID, &r.CrashMultiplier, &r.ServerSeed, &r.ServerSeedHash,
			&r.ClientSeed, &r.Nonce, &r.HouseEdge, &r.Aborted, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning round row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
