package game

// WeaponKind identifies a weapon preset.
type WeaponKind string

// OrdinanceKind is what leaves the barrel.
type OrdinanceKind string

const (
	OrdBullet      OrdinanceKind = "bullet"
	OrdRocket      OrdinanceKind = "rocket"
	OrdGrenade     OrdinanceKind = "grenade"
	OrdPlasma      OrdinanceKind = "plasma"
	OrdLaser       OrdinanceKind = "laser" // fired as a beam, not a projectile
	OrdCannonball  OrdinanceKind = "cannonball"
	OrdDart        OrdinanceKind = "dart"
	OrdFlame       OrdinanceKind = "flame"
	OrdNet         OrdinanceKind = "net"
	OrdMine        OrdinanceKind = "mine"
	OrdBarrier     OrdinanceKind = "barrier"     // deploys a destructible obstacle
	OrdTurretKit   OrdinanceKind = "turretKit"   // deploys a turret
	OrdTeleportKit OrdinanceKind = "teleportKit" // deploys linked pads
	OrdHealZone    OrdinanceKind = "healZone"    // deploys a heal field
	OrdLaserKit    OrdinanceKind = "laserKit"    // deploys a rotating defense laser
)

// BulletEffect is a modifier flag set on spawned projectiles.
type BulletEffect uint16

const (
	FxPiercing BulletEffect = 1 << iota
	FxHoming
	FxElectric
	FxIncendiary
	FxFreezing
	FxExplosive
	FxFragmenting
)

func (f BulletEffect) Has(fx BulletEffect) bool { return f&fx != 0 }

// Weapon is an immutable preset. All times are seconds; the engine converts
// to ticks when it resolves firing.
type Weapon struct {
	Kind        WeaponKind    `json:"kind"`
	Name        string        `json:"name"`
	Damage      float64       `json:"damage"`
	FireRate    float64       `json:"fireRate"` // shots per second
	Range       float64       `json:"range"`
	Accuracy    float64       `json:"accuracy"` // 0..1; jitter window is derived from 1-accuracy
	MagazineSize int          `json:"magazineSize"`
	ReloadTime  float64       `json:"reloadTime"`
	Speed       float64       `json:"projectileSpeed"`
	Ordinance   OrdinanceKind `json:"ordinance"`
	Beam        BeamMode      `json:"-"` // damage model for laser ordinance; empty = instant
	Effects     BulletEffect  `json:"-"`
	Burst       int           `json:"burst,omitempty"`  // pellets per shot; 0 = 1
	Spread      float64       `json:"spread,omitempty"` // radians across the burst fan
	Lifetime    float64       `json:"-"`                // projectile lifetime seconds
	Fuse        float64       `json:"-"`                // grenade/mine fuse seconds
	Splash      float64       `json:"-"`                // explosion radius
	Pierces     int           `json:"-"`                // extra targets for piercing rounds
}

// Weapons is the preset table. Utility kinds live in the same table; the
// session layer decides which kinds are selectable per slot.
var Weapons = map[WeaponKind]Weapon{
	"pistol": {
		Kind: "pistol", Name: "Pistol",
		Damage: 12, FireRate: 4, Range: 900, Accuracy: 0.92,
		MagazineSize: 12, ReloadTime: 1.2, Speed: 800,
		Ordinance: OrdBullet, Lifetime: 1.4,
	},
	"rifle": {
		Kind: "rifle", Name: "Rifle",
		Damage: 9, FireRate: 9, Range: 1100, Accuracy: 0.85,
		MagazineSize: 30, ReloadTime: 1.8, Speed: 950,
		Ordinance: OrdBullet, Lifetime: 1.4,
	},
	"shotgun": {
		Kind: "shotgun", Name: "Shotgun",
		Damage: 7, FireRate: 1.2, Range: 500, Accuracy: 0.75,
		MagazineSize: 6, ReloadTime: 2.2, Speed: 700,
		Ordinance: OrdBullet, Burst: 6, Spread: 0.35, Lifetime: 0.7,
	},
	"sniper": {
		Kind: "sniper", Name: "Sniper",
		Damage: 55, FireRate: 0.8, Range: 1800, Accuracy: 0.99,
		MagazineSize: 4, ReloadTime: 2.5, Speed: 1600,
		Ordinance: OrdBullet, Effects: FxPiercing, Pierces: 2, Lifetime: 1.4,
	},
	"rocket": {
		Kind: "rocket", Name: "Rocket Launcher",
		Damage: 40, FireRate: 0.9, Range: 1400, Accuracy: 0.95,
		MagazineSize: 2, ReloadTime: 2.8, Speed: 520,
		Ordinance: OrdRocket, Effects: FxExplosive, Splash: 80, Lifetime: 3,
	},
	"grenade": {
		Kind: "grenade", Name: "Grenade Launcher",
		Damage: 30, FireRate: 1.1, Range: 800, Accuracy: 0.9,
		MagazineSize: 3, ReloadTime: 2.4, Speed: 420,
		Ordinance: OrdGrenade, Effects: FxExplosive, Splash: 70, Fuse: 1.8, Lifetime: 4,
	},
	"plasma": {
		Kind: "plasma", Name: "Plasma Gun",
		Damage: 16, FireRate: 5, Range: 900, Accuracy: 0.88,
		MagazineSize: 20, ReloadTime: 2.0, Speed: 620,
		Ordinance: OrdPlasma, Effects: FxElectric, Lifetime: 1.6,
	},
	"laser": {
		Kind: "laser", Name: "Laser",
		Damage: 22, FireRate: 1.6, Range: 1300, Accuracy: 1.0,
		MagazineSize: 8, ReloadTime: 2.2, Speed: 0,
		Ordinance: OrdLaser, Lifetime: 0.2,
	},
	"beamcutter": {
		Kind: "beamcutter", Name: "Beam Cutter",
		Damage: 48, FireRate: 0.5, Range: 700, Accuracy: 1.0,
		MagazineSize: 2, ReloadTime: 3.0, Speed: 0,
		Ordinance: OrdLaser, Beam: BeamDOT, Lifetime: 1.5,
	},
	"chargebeam": {
		Kind: "chargebeam", Name: "Charge Beam",
		Damage: 90, FireRate: 0.4, Range: 1000, Accuracy: 1.0,
		MagazineSize: 3, ReloadTime: 2.8, Speed: 0,
		Ordinance: OrdLaser, Beam: BeamBurst, Lifetime: 0.7,
	},
	"cannon": {
		Kind: "cannon", Name: "Cannon",
		Damage: 34, FireRate: 0.7, Range: 1000, Accuracy: 0.9,
		MagazineSize: 1, ReloadTime: 1.9, Speed: 420,
		Ordinance: OrdCannonball, Lifetime: 2.6,
	},
	"dart": {
		Kind: "dart", Name: "Dart Gun",
		Damage: 6, FireRate: 7, Range: 700, Accuracy: 0.9,
		MagazineSize: 14, ReloadTime: 1.6, Speed: 820,
		Ordinance: OrdDart, Effects: FxIncendiary, Lifetime: 1.0,
	},
	"flamethrower": {
		Kind: "flamethrower", Name: "Flamethrower",
		Damage: 4, FireRate: 14, Range: 260, Accuracy: 0.7,
		MagazineSize: 60, ReloadTime: 2.6, Speed: 380,
		Ordinance: OrdFlame, Effects: FxIncendiary, Spread: 0.3, Lifetime: 0.55,
	},
	"netgun": {
		Kind: "netgun", Name: "Net Gun",
		Damage: 2, FireRate: 0.6, Range: 600, Accuracy: 0.9,
		MagazineSize: 1, ReloadTime: 2.5, Speed: 540,
		Ordinance: OrdNet, Lifetime: 1.6,
	},
	"minelayer": {
		Kind: "minelayer", Name: "Mine Layer",
		Damage: 45, FireRate: 0.8, Range: 120, Accuracy: 1.0,
		MagazineSize: 3, ReloadTime: 3.0, Speed: 0,
		Ordinance: OrdMine, Effects: FxExplosive, Splash: 90, Fuse: 1.0, Lifetime: 30,
	},
	"barrier": {
		Kind: "barrier", Name: "Barrier",
		Damage: 0, FireRate: 0.4, Range: 140, Accuracy: 1.0,
		MagazineSize: 2, ReloadTime: 4.0,
		Ordinance: OrdBarrier, Lifetime: 20,
	},
	"turret": {
		Kind: "turret", Name: "Turret Kit",
		Damage: 0, FireRate: 0.2, Range: 120, Accuracy: 1.0,
		MagazineSize: 1, ReloadTime: 8.0,
		Ordinance: OrdTurretKit, Lifetime: 30,
	},
	"teleport": {
		Kind: "teleport", Name: "Teleport Pads",
		Damage: 0, FireRate: 0.15, Range: 400, Accuracy: 1.0,
		MagazineSize: 1, ReloadTime: 10.0,
		Ordinance: OrdTeleportKit, Lifetime: 45,
	},
	"defenselaser": {
		Kind: "defenselaser", Name: "Defense Laser",
		Damage: 0, FireRate: 0.15, Range: 200, Accuracy: 1.0,
		MagazineSize: 1, ReloadTime: 12.0,
		Ordinance: OrdLaserKit, Lifetime: 20,
	},
	"medkit": {
		Kind: "medkit", Name: "Med Zone",
		Damage: 0, FireRate: 0.25, Range: 100, Accuracy: 1.0,
		MagazineSize: 1, ReloadTime: 6.0,
		Ordinance: OrdHealZone, Lifetime: 6,
	},
}

// GetWeapon returns a preset by kind, defaulting to the pistol.
func GetWeapon(kind WeaponKind) Weapon {
	if w, ok := Weapons[kind]; ok {
		return w
	}
	return Weapons["pistol"]
}

// WeaponState is a player's live state for one weapon slot.
type WeaponState struct {
	Weapon       Weapon
	Magazine     int
	ReloadDoneAt int64 // tick when a running reload completes; 0 = idle
	LastFireAt   int64 // tick of the last successful shot
}

// NewWeaponState readies a weapon with a full magazine.
func NewWeaponState(kind WeaponKind) WeaponState {
	w := GetWeapon(kind)
	return WeaponState{Weapon: w, Magazine: w.MagazineSize, LastFireAt: -1 << 30}
}

// Reloading reports whether a reload is running at the given tick.
func (ws *WeaponState) Reloading(now int64) bool {
	return ws.ReloadDoneAt != 0 && now < ws.ReloadDoneAt
}

// CanFire applies the firing gate: cadence elapsed, rounds left, not
// reloading. fireRateMult comes from the player's effective attributes.
func (ws *WeaponState) CanFire(now int64, tickRate int, fireRateMult float64) bool {
	if ws.Magazine <= 0 || ws.Reloading(now) {
		return false
	}
	rate := ws.Weapon.FireRate * fireRateMult
	if rate <= 0 {
		return false
	}
	interval := int64(float64(tickRate) / rate)
	if interval < 1 {
		interval = 1
	}
	return now >= ws.LastFireAt+interval
}

// StartReload begins a reload if one is useful. Returns true when started.
func (ws *WeaponState) StartReload(now int64, tickRate int, reloadMult float64) bool {
	if ws.Reloading(now) || ws.Magazine >= ws.Weapon.MagazineSize {
		return false
	}
	ticks := int64(ws.Weapon.ReloadTime * reloadMult * float64(tickRate))
	if ticks < 1 {
		ticks = 1
	}
	ws.ReloadDoneAt = now + ticks
	return true
}

// FinishReload fills the magazine if the running reload completed.
// Magazine fill is atomic at the completion tick.
func (ws *WeaponState) FinishReload(now int64) bool {
	if ws.ReloadDoneAt == 0 || now < ws.ReloadDoneAt {
		return false
	}
	ws.ReloadDoneAt = 0
	ws.Magazine = ws.Weapon.MagazineSize
	return true
}
