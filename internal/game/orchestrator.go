package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crashpit/internal/fair"
	"crashpit/internal/wallet"
)

const (
	betQueueSize     = 1000
	cashoutQueueSize = 1000
	betTimeout       = 5 * time.Second
	cashoutTimeout   = 500 * time.Millisecond
)

// Broadcaster pushes round events to observers. The hub implements it; tests
// substitute a recorder.
type Broadcaster interface {
	Broadcast(message interface{})
}

// Recorder is the persistence collaborator. Calls are fire-and-forget from
// the orchestrator's point of view; failures are logged, never fatal to the
// round.
type Recorder interface {
	RecordRound(ctx context.Context, record RoundRecord) error
	RecordSettlement(ctx context.Context, roundID string, bet Bet) error
}

// Orchestrator runs the crash game: one goroutine owns the active round's
// seed, clock and ledger, and every external call (bets, cashouts, abort)
// is delivered through a channel so operations within a round are totally
// ordered. Wallet crediting and persistence are dispatched asynchronously
// so a slow collaborator never delays the next round.
type Orchestrator struct {
	cfg      Config
	hub      Broadcaster
	wallet   wallet.Service
	recorder Recorder
	history  *RoundHistory

	mu       sync.RWMutex
	snapshot *RoundSnapshot

	// Round state below is owned by the round goroutine.
	seed       fair.RoundSeed
	crashPoint float64
	ledger     *BetLedger
	clock      *RoundClock
	phase      Phase
	startedAt  time.Time
	drawCursor uint32
	crashFired bool

	betCh     chan BetRequest
	cashoutCh chan CashoutRequest
	abortCh   chan string
	stopCh    chan struct{}
	nonce     int
}

func NewOrchestrator(cfg Config, hub Broadcaster, walletSvc wallet.Service, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		hub:       hub,
		wallet:    walletSvc,
		recorder:  recorder,
		history:   NewRoundHistory(cfg.HistorySize),
		betCh:     make(chan BetRequest, betQueueSize),
		cashoutCh: make(chan CashoutRequest, cashoutQueueSize),
		abortCh:   make(chan string, 1),
		stopCh:    make(chan struct{}),
	}
}

func (o *Orchestrator) Start() {
	go o.run()
}

func (o *Orchestrator) Stop() {
	close(o.stopCh)
}

// PlaceBet admits a wager during the betting window. Delivered to the round
// goroutine and answered synchronously.
func (o *Orchestrator) PlaceBet(req BetRequest) BetResponse {
	respChan := make(chan BetResponse, 1)
	req.ResponseChan = respChan

	select {
	case o.betCh <- req:
		select {
		case resp := <-respChan:
			return resp
		case <-time.After(betTimeout):
			return BetResponse{Success: false, Message: "Bet timeout"}
		}
	default:
		return BetResponse{Success: false, Message: "Bet queue full"}
	}
}

// Cashout settles a running bet at the current tick multiplier.
func (o *Orchestrator) Cashout(req CashoutRequest) CashoutResponse {
	respChan := make(chan CashoutResponse, 1)
	req.ResponseChan = respChan

	select {
	case o.cashoutCh <- req:
		select {
		case resp := <-respChan:
			return resp
		case <-time.After(cashoutTimeout):
			return CashoutResponse{Success: false, Message: "Cashout timeout"}
		}
	default:
		return CashoutResponse{Success: false, Message: "Cashout queue full"}
	}
}

// Abort is the operator override for the in-progress round: every open bet
// is voided and refunded rather than settled. Not a regular code path.
func (o *Orchestrator) Abort(reason string) {
	select {
	case o.abortCh <- reason:
	default:
	}
}

// CurrentRound returns a read-only snapshot of the active round, or nil
// between rounds.
func (o *Orchestrator) CurrentRound() *RoundSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.snapshot == nil {
		return nil
	}
	snapshot := *o.snapshot
	return &snapshot
}

// History returns archived rounds, most recent first.
func (o *Orchestrator) History(limit int) []RoundRecord {
	return o.history.Recent(limit)
}

// FindRound looks up an archived round for fairness verification.
func (o *Orchestrator) FindRound(roundID string) (RoundRecord, bool) {
	return o.history.Find(roundID)
}

func (o *Orchestrator) run() {
	o.seedBotBankrolls()

	for {
		select {
		case <-o.stopCh:
			log.Println("[GAME] Orchestrator stopped")
			return
		default:
		}

		o.runRound()

		select {
		case <-o.stopCh:
			log.Println("[GAME] Orchestrator stopped")
			return
		case <-time.After(o.cfg.Cooldown):
		}
	}
}

func (o *Orchestrator) runRound() {
	o.beginRound()
	o.placeSimulatedBets()

	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if o.handleTick() {
				return
			}
		case req := <-o.betCh:
			o.handleBet(req)
		case req := <-o.cashoutCh:
			o.handleCashout(req)
		case reason := <-o.abortCh:
			o.abortRound(reason)
			return
		case <-o.stopCh:
			return
		}
	}
}

// beginRound draws the round's outcome and publishes the seed commitment.
// The crash point is fixed here, before any bet is admitted, and never
// changes for the lifetime of the round.
func (o *Orchestrator) beginRound() {
	o.nonce++
	o.seed = fair.NewRoundSeed(o.cfg.ClientSeed, o.nonce)
	o.crashPoint = fair.CrashPoint(fair.Draw(o.seed, 0), o.cfg.HouseEdge)
	o.drawCursor = 1 // index 0 is the crash point
	o.crashFired = false

	roundID := fmt.Sprintf("R%d-%d", time.Now().Unix(), o.nonce)
	countdownTicks := int(o.cfg.BettingTime / o.cfg.TickInterval)

	o.ledger = NewBetLedger()
	o.clock = NewRoundClock(countdownTicks, o.cfg.TickInterval, o.crashPoint)
	o.phase = PhaseAcceptingBets
	o.startedAt = time.Now()

	o.mu.Lock()
	o.snapshot = &RoundSnapshot{
		RoundID:            roundID,
		Phase:              PhaseAcceptingBets,
		ServerSeedHash:     o.seed.ServerSeedHash,
		ClientSeed:         o.seed.ClientSeed,
		Nonce:              o.seed.Nonce,
		CurrentMultiplier:  fair.MinMultiplier,
		CountdownRemaining: o.cfg.BettingTime.Seconds(),
		StartedAt:          o.startedAt,
	}
	o.mu.Unlock()

	log.Printf("[GAME] Round %s open, commitment %s...", roundID, o.seed.ServerSeedHash[:16])

	o.hub.Broadcast(map[string]interface{}{
		"type":             "round_start",
		"round_id":         roundID,
		"phase":            PhaseAcceptingBets,
		"server_seed_hash": o.seed.ServerSeedHash,
		"client_seed":      o.seed.ClientSeed,
		"nonce":            o.seed.Nonce,
		"time_left":        o.cfg.BettingTime.Seconds(),
	})
}

// handleTick advances the clock by one interval and applies every settlement
// decision for that tick against the single multiplier value it produced.
// Returns true when the round is over.
func (o *Orchestrator) handleTick() bool {
	multiplier, crashed := o.clock.Tick()

	switch o.phase {
	case PhaseAcceptingBets:
		if o.clock.State() == ClockCountdown {
			o.mu.Lock()
			o.snapshot.CountdownRemaining = o.clock.CountdownRemaining().Seconds()
			o.mu.Unlock()
			return false
		}
		o.closeBetting()
		// A zero-length betting window starts the clock in Growing, so a
		// crash point of 1.00 lands on the same tick that closes betting.
		if crashed {
			o.settleAutoCashouts(multiplier)
			o.settleCrash()
			return true
		}
		return false

	case PhaseRunning:
		if crashed {
			// Auto-cashout thresholds crossed on the crash tick still win,
			// but only strictly below the crash point: ties lose.
			o.settleAutoCashouts(multiplier)
			o.settleCrash()
			return true
		}

		o.mu.Lock()
		o.snapshot.CurrentMultiplier = multiplier
		o.mu.Unlock()

		o.settleAutoCashouts(multiplier)
		o.settleSimulatedExits(multiplier)

		o.hub.Broadcast(map[string]interface{}{
			"type":       "update",
			"round_id":   o.roundID(),
			"multiplier": multiplier,
		})
		return false

	default:
		// A tick after the crash transition means the crash fired twice.
		// Whatever is still open must be voided and refunded, never settled
		// against a second crash value.
		violation := &FairnessViolation{RoundID: o.roundID(), Reason: "tick delivered after crash transition"}
		log.Printf("[FAIR] %v", violation)
		o.abortRound(violation.Reason)
		return true
	}
}

func (o *Orchestrator) closeBetting() {
	o.ledger.Close()
	o.phase = PhaseRunning

	o.mu.Lock()
	o.snapshot.Phase = PhaseRunning
	o.snapshot.CountdownRemaining = 0
	o.mu.Unlock()

	log.Printf("[GAME] Round %s running with %d bets", o.roundID(), o.ledger.Len())

	o.hub.Broadcast(map[string]interface{}{
		"type":     "round_running",
		"round_id": o.roundID(),
		"phase":    PhaseRunning,
	})
}

// settleAutoCashouts wins every open bet whose threshold the tick multiplier
// has reached. The payout multiplier is the threshold itself, not the tick
// value, which keeps a winning bet strictly below the crash point even when
// the curve jumps past both in one tick.
func (o *Orchestrator) settleAutoCashouts(current float64) {
	for _, bet := range o.ledger.Open() {
		if bet.AutoCashout <= 0 {
			continue
		}
		if current < bet.AutoCashout || bet.AutoCashout >= o.crashPoint {
			continue
		}

		if err := o.ledger.SettleWin(bet.ID, bet.AutoCashout); err != nil {
			log.Printf("[GAME] Auto cashout for bet %s failed: %v", bet.ID, err)
			continue
		}
		o.payoutWin(bet.ID)
	}
}

// settleSimulatedExits applies the probabilistic cashout policy to simulated
// bets with no explicit threshold. The exit probability grows with the
// multiplier, and every decision consumes a deterministic draw so a round
// replays identically from its seed.
func (o *Orchestrator) settleSimulatedExits(current float64) {
	for _, bet := range o.ledger.Open() {
		if bet.Kind != ParticipantSimulated || bet.AutoCashout > 0 {
			continue
		}

		if fair.Draw(o.seed, o.nextDraw()) < simulatedExitProbability(current) {
			if err := o.ledger.SettleWin(bet.ID, current); err != nil {
				log.Printf("[GAME] Simulated exit for bet %s failed: %v", bet.ID, err)
				continue
			}
			o.payoutWin(bet.ID)
		}
	}
}

// simulatedExitProbability models organic cashout behavior: reluctant at low
// multipliers, increasingly eager as the round climbs.
func simulatedExitProbability(multiplier float64) float64 {
	p := 0.01 + (multiplier-1.0)*0.02
	if p > 0.25 {
		p = 0.25
	}
	return p
}

// settleCrash runs exactly once per round: remaining open bets lose, the
// seed is revealed, the round is archived and the payout/persistence
// handoffs are dispatched.
func (o *Orchestrator) settleCrash() {
	if o.crashFired {
		violation := &FairnessViolation{RoundID: o.roundID(), Reason: "crash settlement fired twice"}
		log.Printf("[FAIR] %v", violation)
		return
	}
	o.crashFired = true
	o.phase = PhaseSettling

	o.mu.Lock()
	o.snapshot.Phase = PhaseSettling
	o.snapshot.CurrentMultiplier = o.crashPoint
	roundID := o.snapshot.RoundID
	o.mu.Unlock()

	lost := o.ledger.SettleAllOpenAsLost()
	log.Printf("[GAME] Round %s crashed at %.2fx, %d bets lost", roundID, o.crashPoint, len(lost))

	o.hub.Broadcast(map[string]interface{}{
		"type":        "crash",
		"round_id":    roundID,
		"multiplier":  o.crashPoint,
		"server_seed": o.seed.ServerSeed,
	})

	record := RoundRecord{
		RoundID:         roundID,
		CrashMultiplier: o.crashPoint,
		ServerSeed:      o.seed.ServerSeed,
		ServerSeedHash:  o.seed.ServerSeedHash,
		ClientSeed:      o.seed.ClientSeed,
		Nonce:           o.seed.Nonce,
		HouseEdge:       o.cfg.HouseEdge,
		StartedAt:       o.startedAt,
		EndedAt:         time.Now(),
	}
	o.history.Append(record)
	o.persistRound(record, o.ledger.Snapshot())
}

// abortRound voids and refunds every open bet. Settled bets keep their
// outcome; the round is archived with the aborted flag.
func (o *Orchestrator) abortRound(reason string) {
	alreadySettled := o.crashFired
	o.phase = PhaseSettling
	o.crashFired = true

	o.mu.Lock()
	o.snapshot.Phase = PhaseSettling
	roundID := o.snapshot.RoundID
	o.mu.Unlock()

	voided := o.ledger.VoidAllOpen()
	log.Printf("[GAME] Round %s aborted (%s), %d bets voided", roundID, reason, len(voided))

	for _, id := range voided {
		bet, ok := o.ledger.Get(id)
		if !ok {
			continue
		}
		go o.refundWithRetry(bet)
	}

	o.hub.Broadcast(map[string]interface{}{
		"type":     "round_aborted",
		"round_id": roundID,
		"reason":   reason,
	})

	// A round that already settled was archived by that settlement; this
	// pass only exists to void whatever was still open.
	if alreadySettled {
		return
	}

	record := RoundRecord{
		RoundID:        roundID,
		ServerSeed:     o.seed.ServerSeed,
		ServerSeedHash: o.seed.ServerSeedHash,
		ClientSeed:     o.seed.ClientSeed,
		Nonce:          o.seed.Nonce,
		HouseEdge:      o.cfg.HouseEdge,
		Aborted:        true,
		StartedAt:      o.startedAt,
		EndedAt:        time.Now(),
	}
	o.history.Append(record)
	o.persistRound(record, o.ledger.Snapshot())
}

func (o *Orchestrator) handleBet(req BetRequest) {
	resp := BetResponse{}
	defer func() {
		if req.ResponseChan != nil {
			req.ResponseChan <- resp
		}
	}()

	if req.Stake <= 0 {
		resp.Message = ErrInvalidStake.Error()
		return
	}
	if req.Stake < o.cfg.MinStake || req.Stake > o.cfg.MaxStake {
		resp.Message = ErrStakeOutOfRange.Error()
		return
	}
	if req.AutoCashout != 0 && req.AutoCashout <= 1.0 {
		resp.Message = ErrInvalidAutoCashout.Error()
		return
	}
	if o.phase != PhaseAcceptingBets {
		resp.Message = ErrRoundNotAcceptingBets.Error()
		return
	}

	betID := fmt.Sprintf("BET-%s-%d", req.ParticipantID, time.Now().UnixNano())

	if err := o.wallet.ReserveStake(context.Background(), req.ParticipantID, betID, req.Stake); err != nil {
		if err == wallet.ErrInsufficientFunds {
			resp.Message = ErrInsufficientFunds.Error()
		} else {
			log.Printf("[BET] Stake reservation failed for %s: %v", req.ParticipantID, err)
			resp.Message = "Transaction failed"
		}
		return
	}

	bet := Bet{
		ID:            betID,
		ParticipantID: req.ParticipantID,
		Kind:          ParticipantPlayer,
		Stake:         req.Stake,
		AutoCashout:   req.AutoCashout,
		PlacedAt:      time.Now(),
	}

	if err := o.ledger.Admit(bet); err != nil {
		go o.refundWithRetry(bet)
		resp.Message = err.Error()
		return
	}

	resp.Success = true
	resp.BetID = betID
	resp.Message = "Bet placed"

	o.hub.Broadcast(map[string]interface{}{
		"type": "bet_placed",
		"data": BetPlacedEvent{ParticipantID: req.ParticipantID, BetID: betID, Stake: req.Stake},
	})

	log.Printf("[BET] %s staked %.2f (bet %s)", req.ParticipantID, req.Stake, betID)
}

func (o *Orchestrator) handleCashout(req CashoutRequest) {
	resp := CashoutResponse{}
	defer func() {
		if req.ResponseChan != nil {
			req.ResponseChan <- resp
		}
	}()

	if o.phase != PhaseRunning {
		resp.Message = "Cannot cash out now"
		return
	}

	bet, ok := o.ledger.Get(req.BetID)
	if !ok {
		resp.Message = ErrUnknownBet.Error()
		return
	}
	if bet.ParticipantID != req.ParticipantID {
		resp.Message = ErrUnknownBet.Error()
		return
	}

	multiplier := o.clock.Multiplier()
	if err := o.ledger.SettleWin(req.BetID, multiplier); err != nil {
		resp.Message = err.Error()
		return
	}

	payout := bet.Stake * multiplier
	o.payoutWin(req.BetID)

	resp.Success = true
	resp.Multiplier = multiplier
	resp.Payout = payout
	resp.Message = fmt.Sprintf("Cashed out at %.2fx", multiplier)

	o.hub.Broadcast(map[string]interface{}{
		"type": "cashout",
		"data": CashoutEvent{ParticipantID: req.ParticipantID, BetID: req.BetID, Multiplier: multiplier, Payout: payout},
	})

	log.Printf("[CASHOUT] %s cashed out at %.2fx (payout %.2f)", req.ParticipantID, multiplier, payout)
}

// placeSimulatedBets seeds the round with bot wagers. Stake sizes and
// thresholds come from the round's own draw stream, so bot behavior is as
// replayable as the crash point.
func (o *Orchestrator) placeSimulatedBets() {
	for i := 0; i < o.cfg.BotCount; i++ {
		participantID := fmt.Sprintf("bot-%d", i+1)

		stake := o.cfg.BotMinStake + fair.Draw(o.seed, o.nextDraw())*(o.cfg.BotMaxStake-o.cfg.BotMinStake)
		stake = float64(int(stake*100)) / 100.0

		// Half the bots pick an auto-cashout target; the rest ride the
		// curve and exit probabilistically.
		autoCashout := 0.0
		if fair.Draw(o.seed, o.nextDraw()) < 0.5 {
			t := fair.Draw(o.seed, o.nextDraw())
			autoCashout = 1.1 + t*t*5.0
			autoCashout = float64(int(autoCashout*100)) / 100.0
		}

		betID := fmt.Sprintf("BET-%s-%d", participantID, time.Now().UnixNano())

		if err := o.wallet.ReserveStake(context.Background(), participantID, betID, stake); err != nil {
			// Bots run dry eventually; top the bankroll back up and retry.
			if err == wallet.ErrInsufficientFunds {
				o.wallet.SetBalance(context.Background(), participantID, o.cfg.BotBankroll)
				err = o.wallet.ReserveStake(context.Background(), participantID, betID, stake)
			}
			if err != nil {
				log.Printf("[GAME] Simulated bet for %s skipped: %v", participantID, err)
				continue
			}
		}

		bet := Bet{
			ID:            betID,
			ParticipantID: participantID,
			Kind:          ParticipantSimulated,
			Stake:         stake,
			AutoCashout:   autoCashout,
			PlacedAt:      time.Now(),
		}

		if err := o.ledger.Admit(bet); err != nil {
			go o.refundWithRetry(bet)
			continue
		}

		o.hub.Broadcast(map[string]interface{}{
			"type": "bet_placed",
			"data": BetPlacedEvent{ParticipantID: participantID, BetID: betID, Stake: stake},
		})
	}
}

func (o *Orchestrator) seedBotBankrolls() {
	for i := 0; i < o.cfg.BotCount; i++ {
		participantID := fmt.Sprintf("bot-%d", i+1)
		if err := o.wallet.SetBalance(context.Background(), participantID, o.cfg.BotBankroll); err != nil {
			log.Printf("[GAME] Seeding bankroll for %s failed: %v", participantID, err)
		}
	}
}

// payoutWin hands a won bet to the wallet collaborator off the tick path.
func (o *Orchestrator) payoutWin(betID string) {
	bet, ok := o.ledger.Get(betID)
	if !ok || bet.Status != BetWon {
		return
	}
	go o.creditWithRetry(bet)
}

// creditWithRetry attempts the payout independently of every other bet; a
// failure after retries is fatal to this payout only, never to the round.
func (o *Orchestrator) creditWithRetry(bet Bet) {
	payout := bet.Payout()
	for attempt := 1; attempt <= o.cfg.CreditRetries; attempt++ {
		err := o.wallet.Credit(context.Background(), bet.ParticipantID, bet.ID, payout)
		if err == nil {
			return
		}
		log.Printf("[WALLET] Credit attempt %d for bet %s failed: %v", attempt, bet.ID, err)
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	log.Printf("[WALLET] ALERT: payout %.2f for bet %s abandoned after %d attempts", payout, bet.ID, o.cfg.CreditRetries)
}

func (o *Orchestrator) refundWithRetry(bet Bet) {
	for attempt := 1; attempt <= o.cfg.CreditRetries; attempt++ {
		err := o.wallet.Refund(context.Background(), bet.ParticipantID, bet.ID, bet.Stake)
		if err == nil {
			return
		}
		log.Printf("[WALLET] Refund attempt %d for bet %s failed: %v", attempt, bet.ID, err)
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	log.Printf("[WALLET] ALERT: refund %.2f for bet %s abandoned after %d attempts", bet.Stake, bet.ID, o.cfg.CreditRetries)
}

// persistRound dispatches the archival write without blocking settlement.
func (o *Orchestrator) persistRound(record RoundRecord, bets []Bet) {
	if o.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := o.recorder.RecordRound(ctx, record); err != nil {
			log.Printf("[DB] Recording round %s failed: %v", record.RoundID, err)
		}
		for _, bet := range bets {
			if err := o.recorder.RecordSettlement(ctx, record.RoundID, bet); err != nil {
				log.Printf("[DB] Recording settlement %s failed: %v", bet.ID, err)
			}
		}
	}()
}

func (o *Orchestrator) nextDraw() uint32 {
	index := o.drawCursor
	o.drawCursor++
	return index
}

func (o *Orchestrator) roundID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.snapshot == nil {
		return ""
	}
	return o.snapshot.RoundID
}
