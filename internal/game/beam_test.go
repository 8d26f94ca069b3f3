package game

import (
	"math"
	"testing"
)

// soleBeam returns the single live beam.
func soleBeam(t *testing.T, m *Match) *Beam {
	t.Helper()
	if len(m.reg.Beams) != 1 {
		t.Fatalf("expected 1 beam, got %d", len(m.reg.Beams))
	}
	for _, b := range m.reg.Beams {
		return b
	}
	return nil
}

// beamDuel sets up a shooter and a stationary enemy on open ground.
func beamDuel(t *testing.T, primary WeaponKind) (*Match, EntityID, *Player) {
	t.Helper()
	m := newTestMatch(ModeTDM)
	clearObstacles(m)
	shooterID, err := m.AddPlayer(PlayerMeta{Name: "shooter", Team: 1, WeaponConfig: primary})
	if err != nil {
		t.Fatalf("add shooter: %v", err)
	}
	targetID, err := m.AddPlayer(PlayerMeta{Name: "target", Team: 2})
	if err != nil {
		t.Fatalf("add target: %v", err)
	}
	place(m, shooterID, -60, 0)
	target := place(m, targetID, 60, 0)
	return m, shooterID, target
}

// TestBeamInstantHitsOnce verifies the laser's one-shot damage model.
func TestBeamInstantHitsOnce(t *testing.T) {
	m, shooterID, target := beamDuel(t, "laser")

	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0, Fire: true})
	m.runTick()
	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0})

	if b := soleBeam(t, m); b.Mode != BeamInstant {
		t.Fatalf("laser should emit an instant beam, got %s", b.Mode)
	}
	want := target.MaxHealth - GetWeapon("laser").Damage
	if target.Health != want {
		t.Fatalf("instant beam should deal full damage once, health %v want %v", target.Health, want)
	}
	m.runTick()
	if target.Health != want {
		t.Error("instant beam must not damage again on later ticks")
	}
}

// TestBeamDamageOverTime verifies the cutter drains health per tick while
// the target stays on the line.
func TestBeamDamageOverTime(t *testing.T) {
	m, shooterID, target := beamDuel(t, "beamcutter")

	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0, Fire: true})
	m.runTick()
	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0})

	if b := soleBeam(t, m); b.Mode != BeamDOT {
		t.Fatalf("beamcutter should emit a DOT beam, got %s", b.Mode)
	}
	perTick := GetWeapon("beamcutter").Damage / float64(m.cfg.Game.TickRate)
	if got := target.MaxHealth - target.Health; math.Abs(got-perTick) > 1e-9 {
		t.Fatalf("one tick of DOT should cost %v, got %v", perTick, got)
	}

	for i := 0; i < 29; i++ {
		m.runTick()
	}
	if got := target.MaxHealth - target.Health; got < 20 || got > 28 {
		t.Errorf("30 ticks of DOT should total ~24 damage, got %v", got)
	}
}

// TestBeamBurstReleasesOnExpiry verifies the charge lands as one lump when
// the beam expires, not before.
func TestBeamBurstReleasesOnExpiry(t *testing.T) {
	m, shooterID, target := beamDuel(t, "chargebeam")

	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0, Fire: true})
	m.runTick()
	m.SubmitInput(shooterID, Input{WorldX: 60, WorldY: 0})

	if b := soleBeam(t, m); b.Mode != BeamBurst {
		t.Fatalf("chargebeam should emit a burst beam, got %s", b.Mode)
	}

	ticks := 1
	for ; ticks < 60 && target.Health == target.MaxHealth; ticks++ {
		m.runTick()
	}
	if target.Health == target.MaxHealth {
		t.Fatal("burst beam should release its charge at expiry")
	}
	if ticks < 35 {
		t.Errorf("charge leaked before expiry, landed at tick %d", ticks)
	}
	// 0.7s of 90 damage/s accumulates to ~63, released in one tick.
	if drop := target.MaxHealth - target.Health; drop < 55 || drop > 70 {
		t.Errorf("released lump should be ~63 damage, got %v", drop)
	}
}
