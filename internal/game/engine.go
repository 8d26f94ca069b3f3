// Package game is the authoritative per-match simulation: a fixed-timestep
// engine over a private physics world and entity registry, plus the rule
// machines for every game mode. One goroutine ticks a match; the session
// layer talks to it through mailboxes, the snapshot callback, and the
// mutex-guarded public methods.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"arena/internal/config"
	"arena/internal/game/physics"
	"arena/internal/metrics"
)

var (
	// ErrMatchFull means the match reached its player capacity.
	ErrMatchFull = errors.New("match is full")
	// ErrMatchEnded means the match no longer accepts players.
	ErrMatchEnded = errors.New("match has ended")
	// ErrEntityLimit means the per-match entity ceiling was hit.
	ErrEntityLimit = errors.New("entity limit reached")
)

// tickCatchUpCap bounds how many ticks run back-to-back when the loop falls
// behind; accumulated time beyond it is dropped with a warning.
const tickCatchUpCap = 3

// Match is one running game instance. All simulation state is guarded by mu
// and mutated only inside runTick or the public methods.
type Match struct {
	mu sync.Mutex

	id      string
	cfg     config.Config
	seed    int64
	world   *physics.World
	reg     *Registry
	rules   RuleState
	ruleset Ruleset
	terrain Terrain
	events  *eventBus
	rng     *rand.Rand

	tick      int64
	anomalies int // consecutive tick anomalies; fatal past a threshold

	// onSnapshot and onEvent hand immutable values to the session layer.
	// They must not block beyond a bounded enqueue.
	onSnapshot func(*TickSnapshot)
	onEvent    func(Event)

	humanSessions atomic.Int64
	totalSessions atomic.Int64

	done chan struct{}
}

// NewMatch builds a match with generated terrain and the mode's objective
// entities, ready for Run.
func NewMatch(id string, mode GameMode, cfg config.Config, seed int64) *Match {
	m := &Match{
		id:    id,
		cfg:   cfg,
		seed:  seed,
		world: physics.NewWorld(cfg.Game.WorldWidth, cfg.Game.WorldHeight),
		reg:   NewRegistry(),
		rules: RuleState{
			Mode:        mode,
			Phase:       PhasePre,
			RoundsTotal: cfg.Game.Rounds,
			TeamScores:  make(map[int]int),
		},
		ruleset: newRuleset(mode),
		events:  newEventBus(64, 30),
		rng:     rand.New(rand.NewSource(seed)),
		done:    make(chan struct{}),
	}
	m.terrain = m.generateTerrain(seed)
	m.ruleset.Init(m)
	return m
}

// ID returns the lobby-assigned match id.
func (m *Match) ID() string { return m.id }

// Mode returns the match's game mode.
func (m *Match) Mode() GameMode { return m.rules.Mode }

// Seed returns the terrain seed.
func (m *Match) Seed() int64 { return m.seed }

// OnSnapshot registers the broadcast sink. Call before Run.
func (m *Match) OnSnapshot(fn func(*TickSnapshot)) {
	m.mu.Lock()
	m.onSnapshot = fn
	m.mu.Unlock()
}

// OnEvent registers the event sink. Call before Run.
func (m *Match) OnEvent(fn func(Event)) {
	m.mu.Lock()
	m.onEvent = fn
	m.mu.Unlock()
}

// RetainSession records a connected endpoint for cull accounting.
func (m *Match) RetainSession(human bool) {
	m.totalSessions.Add(1)
	if human {
		m.humanSessions.Add(1)
	}
}

// ReleaseSession undoes RetainSession.
func (m *Match) ReleaseSession(human bool) {
	m.totalSessions.Add(-1)
	if human {
		m.humanSessions.Add(-1)
	}
}

// HumanSessions returns connected human endpoints (players + spectators).
func (m *Match) HumanSessions() int64 { return m.humanSessions.Load() }

// Ended reports whether the match reached its terminal phase.
func (m *Match) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rules.Phase == PhaseEnded
}

// Done is closed when the tick loop has terminated.
func (m *Match) Done() <-chan struct{} { return m.done }

// Run drives the tick loop until ctx is cancelled. It measures wall-clock
// drift: when behind it runs up to tickCatchUpCap ticks back-to-back, then
// drops the remaining debt with a warning so CPU use stays bounded.
func (m *Match) Run(ctx context.Context) {
	defer close(m.done)
	interval := time.Duration(float64(time.Second) / float64(m.cfg.Game.TickRate))
	next := time.Now()

	for {
		now := time.Now()
		if now.Before(next) {
			t := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			now = time.Now()
		} else {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		ran := 0
		for !now.Before(next) && ran < tickCatchUpCap {
			m.runTick()
			next = next.Add(interval)
			ran++
			now = time.Now()
		}
		if !now.Before(next) {
			dropped := int(now.Sub(next)/interval) + 1
			metrics.RecordTicksDropped(dropped)
			log.Printf("match %s: %d ticks behind after catch-up, dropping", m.id, dropped)
			next = now.Add(interval)
		}
	}
}

// SubmitInput stores one tick of intent for a player. Newer input
// overwrites older; the tick samples at most one per player.
func (m *Match) SubmitInput(playerID EntityID, in Input) {
	m.mu.Lock()
	p, ok := m.reg.Players[playerID]
	m.mu.Unlock()
	if ok {
		p.SubmitInput(in)
	}
}

// AddPlayer joins a participant and spawns them.
func (m *Match) AddPlayer(meta PlayerMeta) (EntityID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPlayerLocked(meta)
}

func (m *Match) addPlayerLocked(meta PlayerMeta) (EntityID, error) {
	if m.rules.Phase == PhaseEnded {
		return 0, ErrMatchEnded
	}
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return 0, ErrEntityLimit
	}
	if !meta.IsAI {
		humans := 0
		for _, p := range m.reg.Players {
			if !p.IsAI {
				humans++
			}
		}
		if humans >= m.cfg.Limits.MaxPlayersPerMatch {
			return 0, ErrMatchFull
		}
	}

	id := m.reg.NewID()
	p := &Player{
		ID:        id,
		Name:      meta.Name,
		Team:      m.assignTeam(meta),
		IsAI:      meta.IsAI,
		MaxHealth: 100,
		Lives:     -1,
		Primary:   NewWeaponState(meta.WeaponConfig),
		Utility:   NewWeaponState(utilityOrDefault(meta.UtilityWeapon)),
		Base:      DefaultAttributes(),
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Player %d", id)
	}
	if m.rules.Mode == ModeZombie && !p.IsAI {
		p.Team = humanTeam
		p.Lives = m.cfg.Game.ZombieHumanLives
	}
	if p.IsAI {
		p.ai = newAIController(m.seed, id)
	}
	m.reg.AddPlayer(p)
	m.spawnPlayer(p)
	return id, nil
}

func utilityOrDefault(kind WeaponKind) WeaponKind {
	if kind == "" {
		return "barrier"
	}
	return kind
}

// assignTeam honors an explicit team or balances across 1 and 2. FFA modes
// keep team 0.
func (m *Match) assignTeam(meta PlayerMeta) int {
	if meta.Team != 0 {
		return meta.Team
	}
	switch m.rules.Mode {
	case ModeLoneWolf:
		return 0
	case ModeZombie:
		if meta.IsAI {
			return zombieTeam
		}
		return humanTeam
	}
	var one, two int
	for _, p := range m.reg.Players {
		switch p.Team {
		case 1:
			one++
		case 2:
			two++
		}
	}
	if one <= two {
		return 1
	}
	return 2
}

// RemovePlayer drops a participant: any carried flag returns home, the body
// is released, and the registry entry goes away.
func (m *Match) RemovePlayer(id EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reg.Players[id]
	if !ok {
		return
	}
	if f, carried := m.reg.Flags[p.CarriedFlag]; carried {
		m.returnFlagHome(f)
	}
	m.despawnPlayer(p)
	m.reg.Remove(id)
}

// UpdateLoadout swaps a player's weapons mid-match. A slot only resets when
// its kind actually changes, so re-sending the current loadout is harmless.
// Empty kinds leave the slot alone; names update when non-empty.
func (m *Match) UpdateLoadout(id EntityID, primary, utility WeaponKind, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reg.Players[id]
	if !ok {
		return
	}
	if primary != "" && GetWeapon(primary).Kind != p.Primary.Weapon.Kind {
		p.Primary = NewWeaponState(primary)
	}
	if utility != "" && GetWeapon(utility).Kind != p.Utility.Weapon.Kind {
		p.Utility = NewWeaponState(utility)
	}
	if name != "" {
		p.Name = name
	}
}

// Snapshot serializes the current state outside the tick, for late joiners.
func (m *Match) Snapshot() *TickSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildSnapshot()
}

// InitialStateFor builds the one-time payload for a new session.
func (m *Match) InitialStateFor(playerID EntityID, spectator bool) *InitialState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildInitialState(playerID, spectator)
}

// PlayerCount returns live participants (humans + AI).
func (m *Match) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reg.Players)
}

// runTick advances the simulation by exactly one tick. The step order is a
// contract; reordering breaks the interaction semantics.
func (m *Match) runTick() {
	start := time.Now()
	m.mu.Lock()

	// 1. Advance clocks.
	m.tick++

	// 2. Expire attribute modifications.
	for _, p := range m.reg.Players {
		p.Mods = pruneMods(p.Mods, m.tick)
	}

	// 3. Ingest inputs and apply movement intent.
	m.ingestInputs()

	// 4. Pre-physics actions: reloads, firings, utility cadences, ordinance
	// behavior (fuses, homing, arming), barrier expiry.
	m.resolveReloads()
	m.resolveFirings()
	m.stepUtilities()
	m.stepProjectiles()
	m.stepObstacles()

	// 5. Physics step.
	m.world.Step(1.0 / float64(m.cfg.Game.TickRate))
	anomaly := m.isolateAnomalies()

	// 6. Resolve contacts.
	m.zoneMembershipReset()
	m.resolveContacts()

	// 7. AoE and continuous field effects.
	m.stepEffects()

	// 8. Beams.
	m.stepBeams()

	// Carried flags, drop timers, workshop crafting.
	m.stepObjectiveEntities()

	// 9. Rule step: respawns, objective machines, rounds, victory.
	m.stepRules()

	// 10. Deferred removal flush releases physics handles.
	m.reg.Flush(m.releaseEntity)

	if anomaly {
		m.anomalies++
		if m.anomalies >= 5 {
			m.finish(VictorySystem, "simulation failure")
		}
	} else {
		m.anomalies = 0
	}

	// 11. Serialize and hand off.
	var snap *TickSnapshot
	if m.tick%int64(m.cfg.Game.BroadcastDivisor) == 0 {
		snap = m.buildSnapshot()
	}
	evs := m.events.drain()
	droppedEvs := m.events.takeDropped()
	onSnap, onEvent := m.onSnapshot, m.onEvent
	m.mu.Unlock()

	metrics.RecordTick(time.Since(start))
	if snap != nil && onSnap != nil {
		onSnap(snap)
		metrics.RecordSnapshot()
	}
	if len(evs) > 0 || droppedEvs > 0 {
		metrics.RecordEvents(len(evs), droppedEvs)
	}
	if onEvent != nil {
		for _, e := range evs {
			onEvent(e)
		}
	}
}

// ingestInputs reads each mailbox (or asks the AI controller), then applies
// movement and aim to the physics body, bounded by effective move speed.
func (m *Match) ingestInputs() {
	for _, p := range m.reg.Players {
		if p.IsAI {
			p.intent = p.ai.decide(m, p)
		} else {
			// Stale input keeps held keys working between frames.
			in, _ := p.mailbox.Take()
			in.clampAxes()
			p.intent = in
		}
		if !p.Alive() {
			continue
		}

		eff := p.Effective()
		mv := physics.Vec(p.intent.MoveX, p.intent.MoveY)
		if l := mv.Len(); l > 1 {
			mv = mv.Scale(1 / l)
		}
		m.world.SetVelocity(p.Body, mv.Scale(eff.MoveSpeed))

		p.Aim = physics.Vec(p.intent.WorldX, p.intent.WorldY)
		look := p.Aim.Sub(m.world.Position(p.Body))
		if look.LenSq() > 0 {
			p.Rotation = look.Angle()
			m.world.SetAngle(p.Body, p.Rotation)
		}
	}
}

// resolveReloads finishes due reloads, then starts requested ones. The
// primary only reloads on request, so a player can hold an empty magazine
// and keep the utility slot live. The utility slot has no reload control
// and refills on its own.
func (m *Match) resolveReloads() {
	for _, p := range m.reg.Players {
		if !p.Alive() {
			continue
		}
		p.Primary.FinishReload(m.tick)
		p.Utility.FinishReload(m.tick)

		tr := m.cfg.Game.TickRate
		mult := m.cfg.Game.ReloadMult
		if p.intent.Reload {
			p.Primary.StartReload(m.tick, tr, mult)
		}
		if p.Utility.Magazine == 0 {
			p.Utility.StartReload(m.tick, tr, mult)
		}
	}
}

// resolveFirings turns fire/alt intents into projectiles, beams, or
// deployments.
func (m *Match) resolveFirings() {
	for _, p := range m.reg.Players {
		if !p.Alive() {
			continue
		}
		if p.intent.Fire {
			m.fireWeapon(p, &p.Primary)
		}
		if p.intent.Alt {
			m.fireWeapon(p, &p.Utility)
		}
	}
}

// fireWeapon applies the firing gate and dispatches on ordinance kind.
func (m *Match) fireWeapon(p *Player, ws *WeaponState) {
	eff := p.Effective()
	if !ws.CanFire(m.tick, m.cfg.Game.TickRate, eff.FireRateMult) {
		return
	}
	ws.Magazine--
	ws.LastFireAt = m.tick

	w := ws.Weapon
	pos := m.world.Position(p.Body)
	dir := p.Aim.Sub(pos)
	if dir.LenSq() == 0 {
		dir = physics.FromAngle(p.Rotation)
	} else {
		dir = dir.Normalize()
	}

	switch w.Ordinance {
	case OrdLaser:
		m.spawnBeam(p, w, pos, dir)
	case OrdBarrier:
		m.placeBarrier(p, m.deployPoint(pos, dir, w.Range), m.secondsToTicks(w.Lifetime))
	case OrdTurretKit:
		m.deployTurret(p, m.deployPoint(pos, dir, w.Range), m.secondsToTicks(w.Lifetime))
	case OrdLaserKit:
		m.deployLaser(p, m.deployPoint(pos, dir, w.Range), m.secondsToTicks(w.Lifetime))
	case OrdTeleportKit:
		to := m.deployPoint(pos, p.Aim.Sub(pos).Normalize(), math.Min(w.Range, p.Aim.DistanceTo(pos)))
		m.deployPadPair(p, pos, to, m.secondsToTicks(w.Lifetime))
	case OrdHealZone:
		m.spawnEffect(EffectHeal, m.deployPoint(pos, dir, w.Range), 90, m.secondsToTicks(w.Lifetime), p.ID, p.Team, 15)
	case OrdMine:
		m.spawnProjectile(p, w, m.deployPoint(pos, dir, w.Range), dir)
	default:
		m.fireProjectiles(p, w, pos, dir)
	}
}

// fireProjectiles spawns one round or a burst fan with accuracy jitter.
func (m *Match) fireProjectiles(p *Player, w Weapon, pos physics.Vec2, dir physics.Vec2) {
	n := w.Burst
	if n < 1 {
		n = 1
	}
	jitterWindow := (1 - w.Accuracy) * 0.4 // radians, uniform both sides
	base := dir.Angle()
	muzzle := PlayerRadius + ProjectileRadius + 2

	for i := 0; i < n; i++ {
		a := base
		if n > 1 {
			a += w.Spread * (float64(i)/float64(n-1) - 0.5)
		}
		a += (m.rng.Float64()*2 - 1) * jitterWindow
		d := physics.FromAngle(a)
		m.spawnProjectile(p, w, pos.Add(d.Scale(muzzle)), d)
	}
}

// deployPoint projects a deployment position in front of the shooter,
// clamped to world bounds.
func (m *Match) deployPoint(pos physics.Vec2, dir physics.Vec2, dist float64) physics.Vec2 {
	w, h := m.world.Size()
	p := pos.Add(dir.Scale(dist))
	return p.Clamp(physics.Vec(-w/2+20, -h/2+20), physics.Vec(w/2-20, h/2-20))
}

// resolveContacts drains the physics contact buffer and dispatches each
// pair by entity kind.
func (m *Match) resolveContacts() {
	for _, c := range m.world.DrainContacts() {
		a, b := EntityID(c.OwnerA), EntityID(c.OwnerB)
		ka, kb := m.reg.Kind(a), m.reg.Kind(b)

		switch {
		case ka == KindProjectile:
			m.projectileHit(a, b, kb, c.Point)
		case kb == KindProjectile:
			m.projectileHit(b, a, ka, c.Point)
		case ka == KindPlayer:
			m.playerTouch(a, b, kb)
		case kb == KindPlayer:
			m.playerTouch(b, a, ka)
		}
	}
}

// projectileHit applies a round's terminal behavior against whatever it
// struck.
func (m *Match) projectileHit(projID, targetID EntityID, targetKind EntityKind, at physics.Vec2) {
	p, ok := m.reg.Projectiles[projID]
	if !ok || m.reg.Deferred(projID) {
		return
	}

	switch targetKind {
	case KindPlayer:
		victim, ok := m.reg.Players[targetID]
		if !ok || !victim.Alive() {
			return
		}
		// Friendly rounds pass through teammates.
		if p.OwnerTeam != 0 && victim.Team == p.OwnerTeam && victim.ID != p.Owner {
			return
		}
		switch {
		case p.Kind == OrdNet:
			src := fmt.Sprintf("net:%d", p.ID)
			until := m.tick + m.secondsToTicks(2)
			victim.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpSet, Value: 0, ExpiresAt: until, Source: src})
			m.damagePlayer(victim, p.Damage, p.Owner)
			m.reg.Defer(p.ID)
		case p.Effects.Has(FxExplosive):
			m.explodeProjectile(p, at)
		case p.Effects.Has(FxPiercing):
			if p.AlreadyPierced(targetID) {
				return
			}
			m.damagePlayer(victim, p.Damage, p.Owner)
			m.applyBulletStatus(p, victim)
			p.MarkPierced(targetID)
			p.Pierces--
			if p.Pierces < 0 {
				m.reg.Defer(p.ID)
			}
		default:
			m.damagePlayer(victim, p.Damage, p.Owner)
			m.applyBulletStatus(p, victim)
			m.reg.Defer(p.ID)
		}

	case KindObstacle:
		if p.Effects.Has(FxExplosive) {
			m.explodeProjectile(p, at)
			return
		}
		if ob, ok := m.reg.Obstacles[targetID]; ok {
			m.damageObstacle(ob, p.Damage)
		}
		m.reg.Defer(p.ID)

	case KindTurret:
		if t, ok := m.reg.Turrets[targetID]; ok && t.Owner != p.Owner {
			t.Health -= p.Damage
		}
		if p.Effects.Has(FxExplosive) {
			m.explodeProjectile(p, at)
			return
		}
		m.reg.Defer(p.ID)

	case KindHQ:
		if hq, ok := m.reg.HQs[targetID]; ok && hq.Active && hq.Team != p.OwnerTeam {
			hq.Health -= p.Damage
			if hq.Health <= 0 {
				hq.Health = 0
				hq.Active = false
				m.emitWarning(fmt.Sprintf("team %d headquarters destroyed", hq.Team))
			}
		}
		m.reg.Defer(p.ID)
	}
}

// applyBulletStatus attaches elemental statuses carried by a round.
func (m *Match) applyBulletStatus(p *Projectile, victim *Player) {
	switch {
	case p.Effects.Has(FxIncendiary):
		at := m.world.Position(victim.Body)
		m.spawnEffect(EffectFire, at, 30, m.secondsToTicks(1.5), p.Owner, p.OwnerTeam, 8)
	case p.Effects.Has(FxFreezing):
		src := fmt.Sprintf("freeze:%d", p.ID)
		victim.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: 0.5, ExpiresAt: m.tick + m.secondsToTicks(1.5), Source: src})
	case p.Effects.Has(FxElectric):
		at := m.world.Position(victim.Body)
		m.spawnEffect(EffectElectric, at, 50, m.secondsToTicks(0.5), p.Owner, p.OwnerTeam, 20)
	}
}

// playerTouch dispatches a player touching a sensor entity.
func (m *Match) playerTouch(playerID, otherID EntityID, otherKind EntityKind) {
	pl, ok := m.reg.Players[playerID]
	if !ok || !pl.Alive() {
		return
	}
	switch otherKind {
	case KindFlag:
		if f, ok := m.reg.Flags[otherID]; ok {
			m.touchFlag(f, pl)
		}
	case KindPickup:
		if p, ok := m.reg.Pickups[otherID]; ok && !m.reg.Deferred(otherID) {
			m.applyPickup(p, pl)
		}
	case KindZone:
		if z, ok := m.reg.Zones[otherID]; ok {
			z.counts[pl.Team]++
		}
	case KindWorkshop:
		if w, ok := m.reg.Workshops[otherID]; ok {
			w.present[pl.ID] = struct{}{}
		}
	case KindPad:
		if pad, ok := m.reg.Pads[otherID]; ok {
			m.tryTeleport(pad, pl)
		}
	}
}

// tryTeleport moves a player standing on a charged pad to its linked pad.
func (m *Match) tryTeleport(pad *TeleportPad, pl *Player) {
	if m.tick < pad.ReadyAt {
		return
	}
	other, ok := m.reg.Pads[pad.Linked]
	if !ok || m.reg.Deferred(other.ID) {
		return
	}
	m.world.SetPosition(pl.Body, other.Pos)
	cd := m.secondsToTicks(padCooldown)
	pad.ReadyAt = m.tick + cd
	other.ReadyAt = m.tick + cd
}

// damagePlayer applies damage, honoring spawn protection and
// invulnerability, and resolves death.
func (m *Match) damagePlayer(pl *Player, dmg float64, attacker EntityID) {
	if dmg <= 0 || !pl.Alive() {
		return
	}
	if m.tick < pl.ProtectedUntil {
		return
	}
	if pl.Effective().Invulnerable {
		return
	}
	pl.Health -= dmg
	if pl.Health <= 0 {
		pl.Health = 0
		m.killPlayer(pl, attacker)
	}
}

// killPlayer resolves a death: counters, flag drop, body release, respawn
// scheduling or elimination, kill feed, then the mode hook.
func (m *Match) killPlayer(victim *Player, attacker EntityID) {
	killer := m.reg.Players[attacker]
	deathPos := m.world.Position(victim.Body)

	victim.Deaths++
	if killer != nil && killer.ID != victim.ID {
		killer.Kills++
	}
	if f, ok := m.reg.Flags[victim.CarriedFlag]; ok {
		m.dropFlag(f, deathPos)
	}
	m.despawnPlayer(victim)

	if victim.Lives > 0 {
		victim.Lives--
		if victim.Lives == 0 {
			victim.Eliminated = true
			m.emitInfo(fmt.Sprintf("%s is out of lives", victim.Name))
		}
	}
	if !victim.Eliminated {
		victim.RespawnAt = m.tick + m.secondsToTicks(m.cfg.Game.RespawnDelay)
	}

	m.emitKill(victim, killer)
	m.ruleset.OnKill(m, victim, killer)
}

// spawnPlayer gives a player a fresh body, full health and magazines, and a
// short protection window.
func (m *Match) spawnPlayer(p *Player) {
	pos := m.spawnPointFor(p.Team)
	p.Body = m.world.AddBody(physics.BodySpec{
		Kind:  physics.Kinematic,
		Shape: physics.Circle{R: PlayerRadius},
		Pos:   pos,
		Filter: physics.Filter{
			Category: physics.CatPlayer,
			Mask:     physics.CatAll,
			Group:    uint64(p.ID), // own projectiles pass through
		},
		Owner: uint64(p.ID),
	})
	p.Health = p.MaxHealth
	p.Primary.Magazine = p.Primary.Weapon.MagazineSize
	p.Primary.ReloadDoneAt = 0
	p.Utility.Magazine = p.Utility.Weapon.MagazineSize
	p.Utility.ReloadDoneAt = 0
	p.ProtectedUntil = m.tick + m.secondsToTicks(m.cfg.Game.SpawnProtectSeconds)
}

// despawnPlayer releases the body; the player is physically absent until
// respawn.
func (m *Match) despawnPlayer(p *Player) {
	if p.Body != 0 {
		m.world.RemoveBody(p.Body)
		p.Body = 0
	}
}

// spawnPointFor samples an open point on the team's side of the arena.
func (m *Match) spawnPointFor(team int) physics.Vec2 {
	w, h := m.world.Size()
	for try := 0; try < 12; try++ {
		var x float64
		switch team {
		case 1:
			x = -w/2 + 60 + m.rng.Float64()*w*0.2
		case 2:
			x = w/2 - 60 - m.rng.Float64()*w*0.2
		default:
			x = (m.rng.Float64() - 0.5) * (w - 120)
		}
		y := (m.rng.Float64() - 0.5) * (h - 120)
		p := physics.Vec(x, y)
		if len(m.world.OverlapCircle(p, PlayerRadius*2, physics.CatObstacle|physics.CatPlayer)) == 0 {
			return p
		}
	}
	return physics.Vec(0, 0)
}

// randomOpenPoint samples anywhere on the map with the given clearance.
func (m *Match) randomOpenPoint(clearance float64) physics.Vec2 {
	w, h := m.world.Size()
	for try := 0; try < 12; try++ {
		p := physics.Vec(
			(m.rng.Float64()-0.5)*(w-2*clearance),
			(m.rng.Float64()-0.5)*(h-2*clearance),
		)
		if len(m.world.OverlapCircle(p, clearance, physics.CatObstacle)) == 0 {
			return p
		}
	}
	return physics.Vec(0, 0)
}

// isolateAnomalies force-removes entities with non-finite poses. Returns
// whether anything was caught this tick.
func (m *Match) isolateAnomalies() bool {
	caught := false
	for _, p := range m.reg.Players {
		if p.Alive() && !m.world.Position(p.Body).IsFinite() {
			m.despawnPlayer(p)
			p.RespawnAt = m.tick + m.secondsToTicks(m.cfg.Game.RespawnDelay)
			m.emitWarning(fmt.Sprintf("%s reset after physics anomaly", p.Name))
			caught = true
		}
	}
	for _, p := range m.reg.Projectiles {
		if !m.world.Position(p.Body).IsFinite() {
			m.reg.Defer(p.ID)
			caught = true
		}
	}
	return caught
}

// releaseEntity frees physics handles when the registry flushes a removal.
func (m *Match) releaseEntity(kind EntityKind, id EntityID) {
	switch kind {
	case KindPlayer:
		if p, ok := m.reg.Players[id]; ok {
			m.despawnPlayer(p)
		}
	case KindProjectile:
		if p, ok := m.reg.Projectiles[id]; ok {
			m.world.RemoveBody(p.Body)
		}
	case KindObstacle:
		if o, ok := m.reg.Obstacles[id]; ok {
			m.world.RemoveBody(o.Body)
			for _, b := range o.extraBodies {
				m.world.RemoveBody(b)
			}
		}
	case KindTurret:
		if t, ok := m.reg.Turrets[id]; ok {
			m.world.RemoveBody(t.Body)
		}
	case KindPad:
		if p, ok := m.reg.Pads[id]; ok {
			m.world.RemoveBody(p.Body)
		}
	case KindPickup:
		if p, ok := m.reg.Pickups[id]; ok {
			m.world.RemoveBody(p.Body)
		}
	case KindFlag:
		if f, ok := m.reg.Flags[id]; ok && f.Body != 0 {
			m.world.RemoveBody(f.Body)
		}
	case KindZone:
		if z, ok := m.reg.Zones[id]; ok {
			m.world.RemoveBody(z.Body)
		}
	case KindWorkshop:
		if w, ok := m.reg.Workshops[id]; ok {
			m.world.RemoveBody(w.Body)
		}
	case KindHQ:
		if h, ok := m.reg.HQs[id]; ok {
			m.world.RemoveBody(h.Body)
		}
	}
}

// secondsToTicks converts a duration in seconds to whole ticks, minimum 1
// for any positive duration.
func (m *Match) secondsToTicks(s float64) int64 {
	if s <= 0 {
		return 0
	}
	t := int64(s * float64(m.cfg.Game.TickRate))
	if t < 1 {
		t = 1
	}
	return t
}

func (m *Match) vec(x, y float64) physics.Vec2 { return physics.Vec(x, y) }
