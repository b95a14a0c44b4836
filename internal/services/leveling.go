package services

// expTable holds the experience needed to leave levels 1 through 30
var expTable = [...]int{
	20, 40, 40, 60, 60, 100, 100, 120, 120, 140,
	160, 160, 180, 180, 200, 200, 220, 220, 240, 240,
	260, 260, 280, 280, 300, 300, 320, 320, 340, 360,
}

// RequiredExp returns the experience needed to advance from level to level+1
func RequiredExp(level int) int {
	if level < 1 {
		level = 1
	}
	if level <= len(expTable) {
		return expTable[level-1]
	}
	return expTable[len(expTable)-1] + 20*(level-len(expTable))
}

// LevelUpReward returns the coins granted for reaching level
func LevelUpReward(level int) int64 {
	if level%5 != 0 {
		return 0
	}
	return int64(50 + 10*level)
}

// Growth is the result of adding experience to a pet
type Growth struct {
	Level        int
	Exp          int
	LevelsGained int
	Reward       int64
}

// ApplyExp adds gained experience and carries the remainder over every
// level threshold it crosses
func ApplyExp(level, exp, gained int) Growth {
	if level < 1 {
		level = 1
	}
	g := Growth{Level: level, Exp: exp + gained}
	for g.Exp >= RequiredExp(g.Level) {
		g.Exp -= RequiredExp(g.Level)
		g.Level++
		g.LevelsGained++
		g.Reward += LevelUpReward(g.Level)
	}
	return g
}
