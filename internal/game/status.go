package game

// Attribute names a modifiable player property.
type Attribute uint8

const (
	AttrMoveSpeed Attribute = iota
	AttrDamageMult
	AttrFireRateMult
	AttrVisionRange
	AttrInvulnerable
	AttrVIP
)

// ModOp is how a modification combines with the base value.
type ModOp uint8

const (
	OpAdd ModOp = iota
	OpMul
	OpSet
)

// Modification is one timed change to an attribute. Source ties the mod to
// whatever applied it so re-application replaces instead of stacking.
type Modification struct {
	Attr      Attribute
	Op        ModOp
	Value     float64
	ExpiresAt int64 // tick after which the mod no longer applies
	Source    string
}

// Attributes are a player's effective properties for one tick.
type Attributes struct {
	MoveSpeed    float64
	DamageMult   float64
	FireRateMult float64
	VisionRange  float64
	Invulnerable bool
	VIP          bool
}

// DefaultAttributes returns the baseline every player starts from.
func DefaultAttributes() Attributes {
	return Attributes{
		MoveSpeed:    220,
		DamageMult:   1,
		FireRateMult: 1,
		VisionRange:  900,
	}
}

// Compose folds modifications over a base. Order is fixed: adds first, then
// multiplies, then sets, so the result does not depend on insertion order
// within a class. Boolean attributes treat any nonzero set as true.
func Compose(base Attributes, mods []Modification) Attributes {
	out := base
	apply := func(op ModOp) {
		for _, m := range mods {
			if m.Op != op {
				continue
			}
			switch m.Attr {
			case AttrMoveSpeed:
				out.MoveSpeed = applyOp(out.MoveSpeed, m)
			case AttrDamageMult:
				out.DamageMult = applyOp(out.DamageMult, m)
			case AttrFireRateMult:
				out.FireRateMult = applyOp(out.FireRateMult, m)
			case AttrVisionRange:
				out.VisionRange = applyOp(out.VisionRange, m)
			case AttrInvulnerable:
				out.Invulnerable = m.Value != 0
			case AttrVIP:
				out.VIP = m.Value != 0
			}
		}
	}
	apply(OpAdd)
	apply(OpMul)
	apply(OpSet)

	if out.MoveSpeed < 0 {
		out.MoveSpeed = 0
	}
	return out
}

func applyOp(v float64, m Modification) float64 {
	switch m.Op {
	case OpAdd:
		return v + m.Value
	case OpMul:
		return v * m.Value
	default:
		return m.Value
	}
}

// pruneMods drops modifications whose expiry tick has passed, in place.
func pruneMods(mods []Modification, tick int64) []Modification {
	n := 0
	for _, m := range mods {
		if m.ExpiresAt != 0 && tick > m.ExpiresAt {
			continue
		}
		mods[n] = m
		n++
	}
	return mods[:n]
}
