package game

import (
	"math"
	"testing"

	"arena/internal/config"
	"arena/internal/game/physics"
)

func testConfig() config.Config {
	return config.Config{
		Game:   config.DefaultGame(),
		Server: config.DefaultServer(),
		Limits: config.DefaultLimits(),
	}
}

func newTestMatch(mode GameMode) *Match {
	return NewMatch("test", mode, testConfig(), 42)
}

// clearObstacles removes generated terrain so projectile paths in tests are
// unobstructed.
func clearObstacles(m *Match) {
	for id := range m.reg.Obstacles {
		m.reg.Defer(id)
	}
	m.reg.Flush(m.releaseEntity)
}

// place teleports a player and strips spawn protection.
func place(m *Match, id EntityID, x, y float64) *Player {
	p := m.reg.Players[id]
	m.world.SetPosition(p.Body, physics.Vec(x, y))
	p.ProtectedUntil = 0
	return p
}

// syncBroadphase rebuilds spatial queries after direct SetPosition calls.
func syncBroadphase(m *Match) {
	m.world.Step(0)
	m.world.DrainContacts()
}

// TestAddRemovePlayer verifies join/leave bookkeeping and team balancing.
func TestAddRemovePlayer(t *testing.T) {
	m := newTestMatch(ModeTDM)

	a, err := m.AddPlayer(PlayerMeta{Name: "a"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := m.AddPlayer(PlayerMeta{Name: "b"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.PlayerCount() != 2 {
		t.Fatalf("expected 2 players, got %d", m.PlayerCount())
	}
	pa, pb := m.reg.Players[a], m.reg.Players[b]
	if pa.Team == pb.Team {
		t.Errorf("auto-assignment should balance teams, got %d and %d", pa.Team, pb.Team)
	}
	if !pa.Alive() || !pb.Alive() {
		t.Error("joined players should spawn alive")
	}

	body := pa.Body
	m.RemovePlayer(a)
	if m.PlayerCount() != 1 {
		t.Errorf("expected 1 player after removal, got %d", m.PlayerCount())
	}
	if m.world.Alive(body) {
		t.Error("removed player's body should be released")
	}
}

// TestProjectileHitReducesHealth runs a full shot through the tick loop:
// fire intent, projectile flight, contact, damage.
func TestProjectileHitReducesHealth(t *testing.T) {
	m := newTestMatch(ModeTDM)
	clearObstacles(m)

	shooterID, _ := m.AddPlayer(PlayerMeta{Name: "shooter", Team: 1})
	targetID, _ := m.AddPlayer(PlayerMeta{Name: "target", Team: 2})
	place(m, shooterID, -60, 0)
	target := place(m, targetID, 60, 0)

	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0, Fire: true})
	m.runTick()
	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0}) // release trigger

	if len(m.reg.Projectiles) != 1 {
		t.Fatalf("expected 1 projectile in flight, got %d", len(m.reg.Projectiles))
	}
	shooter := m.reg.Players[shooterID]
	if shooter.Primary.Magazine != shooter.Primary.Weapon.MagazineSize-1 {
		t.Errorf("firing should cost one round, magazine %d", shooter.Primary.Magazine)
	}

	for i := 0; i < 12 && target.Health == target.MaxHealth; i++ {
		m.runTick()
	}
	want := target.MaxHealth - GetWeapon("pistol").Damage
	if target.Health != want {
		t.Errorf("target health should be %v after one pistol round, got %v", want, target.Health)
	}
	if len(m.reg.Projectiles) != 0 {
		t.Error("round should be consumed on hit")
	}
	if shooter.Health != shooter.MaxHealth {
		t.Error("shooter must not be hurt by their own round")
	}
}

// TestFriendlyRoundsPassThrough verifies teammates block neither flight nor
// health.
func TestFriendlyRoundsPassThrough(t *testing.T) {
	m := newTestMatch(ModeTDM)
	clearObstacles(m)

	shooterID, _ := m.AddPlayer(PlayerMeta{Name: "shooter", Team: 1})
	mateID, _ := m.AddPlayer(PlayerMeta{Name: "mate", Team: 1})
	place(m, shooterID, -60, 0)
	mate := place(m, mateID, 60, 0)

	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0, Fire: true})
	m.runTick()
	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0})
	for i := 0; i < 12; i++ {
		m.runTick()
	}
	if mate.Health != mate.MaxHealth {
		t.Errorf("teammate should be unhurt, health %v", mate.Health)
	}
}

// TestExplosionFalloff verifies the damage curve: full at center, 30% floor
// at the rim.
func TestExplosionFalloff(t *testing.T) {
	cases := []struct {
		dist, radius, want float64
	}{
		{0, 80, 1},
		{40, 80, 0.65},
		{80, 80, 0.3},
		{200, 80, 0.3}, // clamped
		{10, 0, 1},     // degenerate radius
	}
	for _, c := range cases {
		if got := explosionFalloff(c.dist, c.radius); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("falloff(%v, %v) = %v, want %v", c.dist, c.radius, got, c.want)
		}
	}
}

// TestExplosionSplash verifies area damage scales with distance and spares
// players beyond the radius.
func TestExplosionSplash(t *testing.T) {
	m := newTestMatch(ModeTDM)
	clearObstacles(m)

	ownerID, _ := m.AddPlayer(PlayerMeta{Name: "owner", Team: 1})
	nearID, _ := m.AddPlayer(PlayerMeta{Name: "near", Team: 2})
	midID, _ := m.AddPlayer(PlayerMeta{Name: "mid", Team: 2})
	farID, _ := m.AddPlayer(PlayerMeta{Name: "far", Team: 2})
	place(m, ownerID, -200, 0)
	near := place(m, nearID, 20, 0)
	mid := place(m, midID, 0, 60)
	far := place(m, farID, 150, 0)
	syncBroadphase(m)

	m.spawnEffect(EffectExplosion, physics.Vec(0, 0), 80, m.secondsToTicks(0.4), ownerID, 1, 40)
	m.stepEffects()

	wantNear := 100 - 40*explosionFalloff(20, 80)
	wantMid := 100 - 40*explosionFalloff(60, 80)
	if math.Abs(near.Health-wantNear) > 1e-9 {
		t.Errorf("near victim health %v, want %v", near.Health, wantNear)
	}
	if math.Abs(mid.Health-wantMid) > 1e-9 {
		t.Errorf("mid victim health %v, want %v", mid.Health, wantMid)
	}
	if near.Health >= mid.Health {
		t.Error("damage should fall off with distance")
	}
	if far.Health != 100 {
		t.Errorf("player beyond the radius should be unhurt, health %v", far.Health)
	}
}

// TestKillRespawnCycle verifies death bookkeeping and timed re-entry.
func TestKillRespawnCycle(t *testing.T) {
	m := newTestMatch(ModeTDM)
	killerID, _ := m.AddPlayer(PlayerMeta{Name: "killer", Team: 1})
	victimID, _ := m.AddPlayer(PlayerMeta{Name: "victim", Team: 2})
	killer := place(m, killerID, -60, 0)
	victim := place(m, victimID, 60, 0)

	m.damagePlayer(victim, 1000, killerID)
	if victim.Alive() {
		t.Fatal("victim should be dead")
	}
	if victim.Deaths != 1 || killer.Kills != 1 {
		t.Errorf("counters wrong: deaths=%d kills=%d", victim.Deaths, killer.Kills)
	}
	if m.rules.TeamScores[killer.Team] != 1 {
		t.Errorf("team kill should score 1, got %d", m.rules.TeamScores[killer.Team])
	}
	delay := m.secondsToTicks(m.cfg.Game.RespawnDelay)
	if victim.RespawnAt != m.tick+delay {
		t.Errorf("respawn scheduled at %d, want %d", victim.RespawnAt, m.tick+delay)
	}

	for i := int64(0); i <= delay && !victim.Alive(); i++ {
		m.runTick()
	}
	if !victim.Alive() {
		t.Fatal("victim should respawn after the delay")
	}
	if victim.Health != victim.MaxHealth {
		t.Error("respawn should restore full health")
	}
	if m.tick >= victim.ProtectedUntil {
		t.Error("respawn should grant a protection window")
	}
}

// TestSpawnProtectionBlocksDamage verifies the protection window.
func TestSpawnProtectionBlocksDamage(t *testing.T) {
	m := newTestMatch(ModeTDM)
	id, _ := m.AddPlayer(PlayerMeta{Name: "fresh", Team: 1})
	p := m.reg.Players[id]
	if p.ProtectedUntil <= m.tick {
		t.Fatal("fresh spawn should be protected")
	}
	m.damagePlayer(p, 50, 0)
	if p.Health != p.MaxHealth {
		t.Errorf("protected player took damage, health %v", p.Health)
	}
}

// TestEntityCeilingRefusesSpawns verifies the per-match entity cap is a
// hard refusal, not a crash.
func TestEntityCeilingRefusesSpawns(t *testing.T) {
	m := newTestMatch(ModeTDM)
	m.cfg.Limits.MaxEntitiesPerMatch = m.reg.Count()
	if _, err := m.AddPlayer(PlayerMeta{Name: "late"}); err != ErrEntityLimit {
		t.Errorf("expected ErrEntityLimit, got %v", err)
	}
}

// TestHumanCapAllowsAI verifies the player cap counts humans only.
func TestHumanCapAllowsAI(t *testing.T) {
	m := newTestMatch(ModeTDM)
	m.cfg.Limits.MaxPlayersPerMatch = 1
	if _, err := m.AddPlayer(PlayerMeta{Name: "human"}); err != nil {
		t.Fatalf("first human: %v", err)
	}
	if _, err := m.AddPlayer(PlayerMeta{Name: "second"}); err != ErrMatchFull {
		t.Errorf("second human should hit ErrMatchFull, got %v", err)
	}
	if _, err := m.AddPlayer(PlayerMeta{Name: "bot", IsAI: true}); err != nil {
		t.Errorf("AI join should ignore the human cap: %v", err)
	}
}

// TestUpdateLoadout verifies weapon swaps reset only on actual change.
func TestUpdateLoadout(t *testing.T) {
	m := newTestMatch(ModeTDM)
	id, _ := m.AddPlayer(PlayerMeta{Name: "p", WeaponConfig: "rifle"})
	p := m.reg.Players[id]

	m.UpdateLoadout(id, "sniper", "medkit", "Ace")
	if p.Primary.Weapon.Kind != "sniper" || p.Utility.Weapon.Kind != "medkit" {
		t.Fatalf("loadout not applied: %s/%s", p.Primary.Weapon.Kind, p.Utility.Weapon.Kind)
	}
	if p.Name != "Ace" {
		t.Errorf("name not applied: %s", p.Name)
	}

	p.Primary.Magazine = 1
	m.UpdateLoadout(id, "sniper", "", "")
	if p.Primary.Magazine != 1 {
		t.Error("re-sending the current weapon must not refill the magazine")
	}
	if p.Name != "Ace" {
		t.Error("empty name must leave the current name")
	}
}

// TestNetRootsVictim verifies a net round zeroes move speed for its window.
func TestNetRootsVictim(t *testing.T) {
	m := newTestMatch(ModeTDM)
	shooterID, _ := m.AddPlayer(PlayerMeta{Name: "shooter", Team: 1})
	victimID, _ := m.AddPlayer(PlayerMeta{Name: "victim", Team: 2})
	shooter := place(m, shooterID, -60, 0)
	victim := place(m, victimID, 60, 0)

	proj := m.spawnProjectile(shooter, GetWeapon("netgun"), physics.Vec(40, 0), physics.Vec(1, 0))
	m.projectileHit(proj.ID, victimID, KindPlayer, physics.Vec(44, 0))

	if victim.Effective().MoveSpeed != 0 {
		t.Errorf("netted victim should be rooted, speed %v", victim.Effective().MoveSpeed)
	}
	// The root expires after its window.
	victim.Mods = pruneMods(victim.Mods, m.tick+m.secondsToTicks(2)+1)
	if victim.Effective().MoveSpeed != DefaultAttributes().MoveSpeed {
		t.Errorf("root should expire, speed %v", victim.Effective().MoveSpeed)
	}
	if !m.reg.Deferred(proj.ID) {
		t.Error("net round should be consumed on hit")
	}
}

// TestTickAdvancesAndSnapshots verifies the tick counter and snapshot
// cadence.
func TestTickAdvancesAndSnapshots(t *testing.T) {
	m := newTestMatch(ModeTDM)
	var got *TickSnapshot
	m.OnSnapshot(func(s *TickSnapshot) { got = s })

	m.runTick()
	if m.tick != 1 {
		t.Fatalf("tick should be 1, got %d", m.tick)
	}
	if got == nil {
		t.Fatal("snapshot callback should fire each broadcast tick")
	}
	if got.Type != "gameState" || got.Tick != 1 {
		t.Errorf("snapshot type=%s tick=%d", got.Type, got.Tick)
	}
}

// TestAnomalyIsolation verifies a non-finite pose is contained, not spread.
func TestAnomalyIsolation(t *testing.T) {
	m := newTestMatch(ModeTDM)
	id, _ := m.AddPlayer(PlayerMeta{Name: "glitch"})
	p := m.reg.Players[id]
	m.world.SetPosition(p.Body, physics.Vec(math.NaN(), 0))

	m.runTick()
	if p.Alive() {
		t.Error("anomalous player should be despawned")
	}
	if p.RespawnAt == 0 {
		t.Error("anomalous player should be scheduled to respawn")
	}
	if m.rules.Phase == PhaseEnded {
		t.Error("a single anomaly must not end the match")
	}
}

// TestRepeatedAnomaliesEndMatch verifies the escalation path.
func TestRepeatedAnomaliesEndMatch(t *testing.T) {
	m := newTestMatch(ModeTDM)
	id, _ := m.AddPlayer(PlayerMeta{Name: "glitch"})
	p := m.reg.Players[id]

	for i := 0; i < 6 && m.rules.Phase != PhaseEnded; i++ {
		p.RespawnAt = m.tick // force immediate respawn, then re-break it
		p.Eliminated = false
		if !p.Alive() {
			m.spawnPlayer(p)
		}
		m.world.SetPosition(p.Body, physics.Vec(math.NaN(), 0))
		m.runTick()
	}
	if m.rules.Phase != PhaseEnded {
		t.Fatal("persistent anomalies should tear the match down")
	}
	if m.rules.Victory != VictorySystem {
		t.Errorf("victory kind should be system, got %s", m.rules.Victory)
	}
}

// TestBarrierDeploysAndExpires verifies the utility slot's barrier flow.
func TestBarrierDeploysAndExpires(t *testing.T) {
	m := newTestMatch(ModeTDM)
	clearObstacles(m)
	id, _ := m.AddPlayer(PlayerMeta{Name: "builder", UtilityWeapon: "barrier"})
	place(m, id, 0, 0)

	m.SubmitInput(id, Input{WorldX: 100, WorldY: 0, Alt: true})
	m.runTick()
	m.SubmitInput(id, Input{WorldX: 100, WorldY: 0})

	var barrier *Obstacle
	for _, o := range m.reg.Obstacles {
		barrier = o
	}
	if barrier == nil {
		t.Fatal("barrier should be placed")
	}
	if !barrier.Destructible || barrier.Owner != id {
		t.Errorf("barrier should be destructible and owned: %+v", barrier)
	}
	if barrier.ExpiresAt == 0 {
		t.Fatal("barrier should carry an expiry")
	}

	m.damageObstacle(barrier, barrier.Health)
	m.reg.Flush(m.releaseEntity)
	if _, ok := m.reg.Obstacles[barrier.ID]; ok {
		t.Error("destroyed barrier should be removed")
	}
}

// TestPrimaryReloadNeedsRequest verifies an empty primary stays empty until
// the player asks, while the utility slot refills on its own.
func TestPrimaryReloadNeedsRequest(t *testing.T) {
	m := newTestMatch(ModeTDM)
	id, _ := m.AddPlayer(PlayerMeta{Name: "p"})
	p := m.reg.Players[id]
	p.Primary.Magazine = 0
	p.Utility.Magazine = 0

	m.runTick()
	if p.Primary.Reloading(m.tick) {
		t.Error("empty primary must not reload without a request")
	}
	if !p.Utility.Reloading(m.tick) {
		t.Error("empty utility slot should reload automatically")
	}

	m.SubmitInput(id, Input{Reload: true})
	m.runTick()
	if !p.Primary.Reloading(m.tick) {
		t.Error("a reload request should start the primary reload")
	}
}
