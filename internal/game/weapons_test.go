package game

import "testing"

const testTickRate = 60

// TestWeaponPresetsComplete verifies every preset is internally consistent.
func TestWeaponPresetsComplete(t *testing.T) {
	for kind, w := range Weapons {
		if w.Kind != kind {
			t.Errorf("%s: preset kind mismatch: %s", kind, w.Kind)
		}
		if w.MagazineSize < 1 {
			t.Errorf("%s: magazine size must be at least 1", kind)
		}
		if w.FireRate <= 0 {
			t.Errorf("%s: fire rate must be positive", kind)
		}
		if w.ReloadTime <= 0 {
			t.Errorf("%s: reload time must be positive", kind)
		}
		if w.Accuracy < 0 || w.Accuracy > 1 {
			t.Errorf("%s: accuracy %v out of [0,1]", kind, w.Accuracy)
		}
	}
}

// TestGetWeaponFallback verifies unknown kinds resolve to the pistol.
func TestGetWeaponFallback(t *testing.T) {
	if got := GetWeapon("no-such-gun"); got.Kind != "pistol" {
		t.Errorf("unknown kind should fall back to pistol, got %s", got.Kind)
	}
	if got := GetWeapon("sniper"); got.Kind != "sniper" {
		t.Errorf("known kind should resolve, got %s", got.Kind)
	}
}

// TestFiringGateCadence verifies shots are spaced by the fire-rate interval.
func TestFiringGateCadence(t *testing.T) {
	ws := NewWeaponState("pistol") // 4 shots/s at 60 TPS = every 15 ticks
	if !ws.CanFire(0, testTickRate, 1) {
		t.Fatal("fresh weapon should fire immediately")
	}
	ws.Magazine--
	ws.LastFireAt = 0

	if ws.CanFire(14, testTickRate, 1) {
		t.Error("should still be gated one tick before the interval")
	}
	if !ws.CanFire(15, testTickRate, 1) {
		t.Error("should fire exactly at the interval")
	}

	// Fire-rate buffs shorten the interval.
	if !ws.CanFire(8, testTickRate, 2) {
		t.Error("doubled fire rate should halve the interval")
	}
}

// TestFiringGateEmptyMagazine verifies an empty magazine blocks firing.
func TestFiringGateEmptyMagazine(t *testing.T) {
	ws := NewWeaponState("pistol")
	ws.Magazine = 0
	if ws.CanFire(100, testTickRate, 1) {
		t.Error("empty magazine must not fire")
	}
}

// TestReloadLifecycle verifies the reload gate and atomic magazine fill.
func TestReloadLifecycle(t *testing.T) {
	ws := NewWeaponState("rifle") // 1.8s reload = 108 ticks
	ws.Magazine = 0

	if !ws.StartReload(10, testTickRate, 1) {
		t.Fatal("reload should start on an empty magazine")
	}
	doneAt := int64(10 + 108)
	if ws.ReloadDoneAt != doneAt {
		t.Fatalf("reload should complete at tick %d, got %d", doneAt, ws.ReloadDoneAt)
	}

	if !ws.Reloading(50) {
		t.Error("should report reloading mid-way")
	}
	if ws.CanFire(50, testTickRate, 1) {
		t.Error("firing must be gated during reload")
	}
	if ws.FinishReload(doneAt - 1) {
		t.Error("reload must not complete early")
	}
	if ws.Magazine != 0 {
		t.Error("magazine must stay empty until completion")
	}

	if !ws.FinishReload(doneAt) {
		t.Fatal("reload should complete at its deadline")
	}
	if ws.Magazine != ws.Weapon.MagazineSize {
		t.Errorf("magazine should fill atomically to %d, got %d", ws.Weapon.MagazineSize, ws.Magazine)
	}
	if ws.Reloading(doneAt) {
		t.Error("reload state should clear on completion")
	}
}

// TestReloadRedundantStart verifies full magazines and running reloads
// ignore new reload requests.
func TestReloadRedundantStart(t *testing.T) {
	ws := NewWeaponState("pistol")
	if ws.StartReload(0, testTickRate, 1) {
		t.Error("full magazine should not start a reload")
	}
	ws.Magazine = 3
	if !ws.StartReload(0, testTickRate, 1) {
		t.Fatal("partial magazine should reload")
	}
	first := ws.ReloadDoneAt
	if ws.StartReload(5, testTickRate, 1) {
		t.Error("a running reload should not restart")
	}
	if ws.ReloadDoneAt != first {
		t.Error("restart attempt must not move the deadline")
	}
}
