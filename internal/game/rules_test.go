package game

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"arena/internal/game/physics"
)

func soleZone(m *Match) *Zone {
	for _, z := range m.reg.Zones {
		return z
	}
	return nil
}

func soleFlag(m *Match) *Flag {
	for _, f := range m.reg.Flags {
		return f
	}
	return nil
}

func runTicks(m *Match, n int) {
	for i := 0; i < n; i++ {
		m.runTick()
	}
}

func TestZoneControlFlow(t *testing.T) {
	Convey("Given a hill match with one attacker standing in the zone", t, func() {
		m := newTestMatch(ModeKOTH)
		clearObstacles(m)
		attackerID, _ := m.AddPlayer(PlayerMeta{Name: "attacker", Team: 1})
		defenderID, _ := m.AddPlayer(PlayerMeta{Name: "defender", Team: 2})
		place(m, attackerID, 10, 0)
		place(m, defenderID, 300, 0)

		zone := soleZone(m)
		So(zone, ShouldNotBeNil)
		So(zone.State, ShouldEqual, ZoneNeutral)

		Convey("capture progress accrues toward control", func() {
			runTicks(m, 180)
			So(zone.State, ShouldEqual, ZoneCapturing)
			So(zone.Team, ShouldEqual, 1)
			So(zone.Progress, ShouldBeBetween, 0.9, 1.0)

			runTicks(m, 5)
			So(zone.State, ShouldEqual, ZoneControlled)
			So(zone.Progress, ShouldEqual, 1.0)

			Convey("an opponent entering contests without resetting ownership", func() {
				place(m, defenderID, -10, 0)
				m.runTick()
				So(zone.State, ShouldEqual, ZoneContested)
				So(zone.Team, ShouldEqual, 1)

				place(m, defenderID, 300, 0)
				m.runTick()
				So(zone.State, ShouldEqual, ZoneControlled)
			})

			Convey("holding the zone pays out one point per second", func() {
				runTicks(m, 130)
				So(m.rules.TeamScores[1], ShouldBeBetweenOrEqual, 1, 3)
				So(m.rules.TeamScores[2], ShouldEqual, 0)
			})
		})

		Convey("abandoning a partial capture decays back to neutral", func() {
			runTicks(m, 60)
			So(zone.State, ShouldEqual, ZoneCapturing)
			So(zone.Progress, ShouldBeGreaterThan, 0)

			place(m, attackerID, 400, 300)
			runTicks(m, 70)
			So(zone.State, ShouldEqual, ZoneNeutral)
			So(zone.Team, ShouldEqual, 0)
			So(zone.Progress, ShouldEqual, 0.0)
		})
	})
}

func TestFlagCaptureFlow(t *testing.T) {
	Convey("Given a flag match with a runner at the enemy pedestal", t, func() {
		m := newTestMatch(ModeCTF)
		clearObstacles(m)
		runnerID, _ := m.AddPlayer(PlayerMeta{Name: "runner", Team: 1})
		runner := place(m, runnerID, 1060, 0)

		enemyFlag := m.teamFlag(2)
		So(enemyFlag, ShouldNotBeNil)
		So(enemyFlag.State, ShouldEqual, FlagHome)

		Convey("touching the enemy flag picks it up", func() {
			m.runTick()
			So(enemyFlag.State, ShouldEqual, FlagCarried)
			So(enemyFlag.Carrier, ShouldEqual, runnerID)
			So(runner.CarriedFlag, ShouldEqual, enemyFlag.ID)

			Convey("dying drops the flag at the death position", func() {
				m.world.SetPosition(runner.Body, physics.Vec(50, 50))
				m.damagePlayer(runner, 1000, 0)
				So(enemyFlag.State, ShouldEqual, FlagDropped)
				So(enemyFlag.Pos, ShouldResemble, physics.Vec(50, 50))
				So(enemyFlag.ReturnAt, ShouldEqual, m.tick+m.secondsToTicks(m.cfg.Game.FlagReturnSeconds))
				So(runner.CarriedFlag, ShouldEqual, EntityID(0))

				Convey("the respawned runner can re-take it and score at home", func() {
					runner.RespawnAt = m.tick + 1
					for i := 0; i < 3 && !runner.Alive(); i++ {
						m.runTick()
					}
					So(runner.Alive(), ShouldBeTrue)

					place(m, runnerID, 50, 50)
					m.runTick()
					So(enemyFlag.State, ShouldEqual, FlagCarried)

					place(m, runnerID, -1080, 0)
					m.runTick()
					So(m.rules.TeamScores[1], ShouldEqual, 1)
					So(runner.Captures, ShouldEqual, 1)
					So(enemyFlag.State, ShouldEqual, FlagHome)
					So(enemyFlag.Pos, ShouldResemble, enemyFlag.Home)
				})

				Convey("an owner touching the drop returns it home", func() {
					ownerID, _ := m.AddPlayer(PlayerMeta{Name: "owner", Team: 2})
					place(m, ownerID, 50, 50)
					m.runTick()
					So(enemyFlag.State, ShouldEqual, FlagHome)
					So(enemyFlag.Pos, ShouldResemble, enemyFlag.Home)
				})

				Convey("an unclaimed drop snaps home after the return window", func() {
					runTicks(m, int(m.secondsToTicks(m.cfg.Game.FlagReturnSeconds))+2)
					So(enemyFlag.State, ShouldEqual, FlagHome)
					So(enemyFlag.Pos, ShouldResemble, enemyFlag.Home)
				})
			})
		})
	})
}

func TestOddballCarryScoring(t *testing.T) {
	Convey("Given an oddball match with a holder next to the ball", t, func() {
		m := newTestMatch(ModeOddball)
		clearObstacles(m)
		holderID, _ := m.AddPlayer(PlayerMeta{Name: "holder", Team: 1})
		holder := place(m, holderID, 10, 0)

		ball := soleFlag(m)
		So(ball, ShouldNotBeNil)
		So(ball.Oddball, ShouldBeTrue)

		Convey("touching the ball picks it up", func() {
			m.runTick()
			So(ball.State, ShouldEqual, FlagCarried)
			So(ball.Carrier, ShouldEqual, holderID)

			Convey("carry time converts to team score", func() {
				runTicks(m, 130)
				So(m.rules.TeamScores[1], ShouldBeBetweenOrEqual, 1, 3)
			})

			Convey("the carrier dying drops the ball where they fell", func() {
				m.world.SetPosition(holder.Body, physics.Vec(200, -100))
				m.damagePlayer(holder, 1000, 0)
				So(ball.State, ShouldEqual, FlagDropped)
				So(ball.Pos, ShouldResemble, physics.Vec(200, -100))
				So(ball.ReturnAt, ShouldNotEqual, 0)
			})
		})
	})
}

func TestJuggernautSuccession(t *testing.T) {
	Convey("Given a juggernaut match with two teams", t, func() {
		m := newTestMatch(ModeJuggernaut)
		a1, _ := m.AddPlayer(PlayerMeta{Name: "a1", Team: 1})
		a2, _ := m.AddPlayer(PlayerMeta{Name: "a2", Team: 1})
		b1, _ := m.AddPlayer(PlayerMeta{Name: "b1", Team: 2})
		runTicks(m, 2) // first playing tick fills the vacant slots

		jr := m.ruleset.(*juggernautRules)
		first := m.reg.Players[a1]
		second := m.reg.Players[a2]
		hunter := m.reg.Players[b1]

		Convey("the lowest-id player of each team is boosted", func() {
			So(jr.vips[1], ShouldEqual, a1)
			So(jr.vips[2], ShouldEqual, b1)
			So(first.Effective().VIP, ShouldBeTrue)
			So(first.MaxHealth, ShouldEqual, 180.0)
			So(second.Effective().VIP, ShouldBeFalse)
		})

		Convey("killing the juggernaut pays the bounty and passes the mantle", func() {
			first.ProtectedUntil = 0
			m.damagePlayer(first, 1000, b1)

			So(m.rules.TeamScores[2], ShouldEqual, m.cfg.Game.JuggernautPoints)
			So(hunter.Score, ShouldEqual, m.cfg.Game.JuggernautPoints)
			So(jr.vips[1], ShouldEqual, a2)
			So(second.Effective().VIP, ShouldBeTrue)
			So(first.Effective().VIP, ShouldBeFalse)
			So(first.MaxHealth, ShouldEqual, 100.0)
		})
	})
}

func TestLoneWolfGrowth(t *testing.T) {
	Convey("Given a lone-wolf match with three players", t, func() {
		m := newTestMatch(ModeLoneWolf)
		ids := make([]EntityID, 3)
		for i := range ids {
			ids[i], _ = m.AddPlayer(PlayerMeta{Name: "p"})
		}
		runTicks(m, 2)

		lw := m.ruleset.(*loneWolfRules)
		So(lw.wolf, ShouldNotEqual, EntityID(0))
		wolf := m.reg.Players[lw.wolf]
		So(wolf.Effective().VIP, ShouldBeTrue)

		Convey("wolf survival converts to score", func() {
			runTicks(m, 130)
			So(wolf.Score, ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("killing the wolf pays a bounty and regrows it stronger", func() {
			var hunter *Player
			for _, id := range ids {
				if id != lw.wolf {
					hunter = m.reg.Players[id]
					break
				}
			}
			wolf.ProtectedUntil = 0
			m.damagePlayer(wolf, 1000, hunter.ID)

			So(hunter.Score, ShouldEqual, 5)
			growth := 1 + m.cfg.Game.LoneWolfGrowth
			So(wolf.Effective().MoveSpeed, ShouldAlmostEqual, DefaultAttributes().MoveSpeed*growth)
			So(wolf.Effective().DamageMult, ShouldAlmostEqual, growth)
		})
	})
}

func TestZombieWaves(t *testing.T) {
	Convey("Given a zombie-defense match with one human", t, func() {
		m := newTestMatch(ModeZombie)
		humanID, _ := m.AddPlayer(PlayerMeta{Name: "human"})
		human := m.reg.Players[humanID]
		zr := m.ruleset.(*zombieRules)

		So(human.Team, ShouldEqual, humanTeam)
		So(human.Lives, ShouldEqual, m.cfg.Game.ZombieHumanLives)

		wave1 := m.cfg.Game.ZombieBaseWave + m.cfg.Game.ZombiePerWave
		So(zr.zombiesAlive, ShouldEqual, wave1)

		Convey("clearing a wave scores it and spawns a larger one after the rest", func() {
			for _, p := range m.reg.Players {
				if p.Team == zombieTeam {
					p.ProtectedUntil = 0
					m.damagePlayer(p, 1000, humanID)
				}
			}
			So(zr.zombiesAlive, ShouldEqual, 0)
			So(human.Score, ShouldEqual, wave1)

			runTicks(m, 2)
			So(m.rules.TeamScores[humanTeam], ShouldEqual, 1)
			So(zr.resting, ShouldBeTrue)

			runTicks(m, int(m.secondsToTicks(m.cfg.Game.ZombieRestSeconds))+2)
			So(zr.resting, ShouldBeFalse)
			So(zr.wave, ShouldEqual, 2)
			So(zr.zombiesAlive, ShouldEqual, m.cfg.Game.ZombieBaseWave+2*m.cfg.Game.ZombiePerWave)
		})

		Convey("losing every human ends the match as overrun", func() {
			for human.Lives > 0 {
				if !human.Alive() {
					m.spawnPlayer(human)
				}
				human.ProtectedUntil = 0
				m.damagePlayer(human, 1000, 0)
			}
			So(human.Eliminated, ShouldBeTrue)

			runTicks(m, 2)
			So(m.rules.Phase, ShouldEqual, PhaseEnded)
			So(m.rules.Victory, ShouldEqual, VictoryElimination)
		})
	})
}
