package flow

import (
	"fmt"
	"strconv"
)

// KeyRelation Camelot 轮盘上两个调性的关系
type KeyRelation string

const (
	RelationSame        KeyRelation = "same"         // 同调，完美衔接
	RelationEnergyBoost KeyRelation = "energy_boost" // 同字母 +1 格，能量上行
	RelationEnergyDrop  KeyRelation = "energy_drop"  // 同字母 -1 格，能量下行
	RelationNone        KeyRelation = "none"
)

// CamelotFromPitch 将音高等级(0-11)和调式(1大调/0小调)换算为 Camelot 记号
// 大调落在 B 环，小调落在 A 环；音高非法时返回 false
func CamelotFromPitch(pitch, mode int) (string, bool) {
	if pitch < 0 || pitch > 11 {
		return "", false
	}

	// 五度圈步进：相邻 Camelot 格相差纯五度
	step := (pitch * 7) % 12
	var num int
	var letter byte
	if mode == 1 {
		num = step + 8
		letter = 'B'
	} else {
		num = step + 5
		letter = 'A'
	}
	if num > 12 {
		num -= 12
	}
	return fmt.Sprintf("%d%c", num, letter), true
}

// parseCamelot 解析 "8A" 形式的 Camelot 记号
func parseCamelot(key string) (num int, letter byte, err error) {
	if len(key) < 2 {
		return 0, 0, fmt.Errorf("invalid camelot key: %q", key)
	}
	letter = key[len(key)-1]
	if letter != 'A' && letter != 'B' {
		return 0, 0, fmt.Errorf("invalid camelot ring: %q", key)
	}
	num, err = strconv.Atoi(key[:len(key)-1])
	if err != nil || num < 1 || num > 12 {
		return 0, 0, fmt.Errorf("invalid camelot position: %q", key)
	}
	return num, letter, nil
}

// relate 计算两个 Camelot 调性的关系
// 同调为完美匹配；同字母相邻一格为能量上行/下行；其余无加成
// 轮盘首尾相接：12 与 1 相邻
func relate(a, b string) KeyRelation {
	numA, letterA, errA := parseCamelot(a)
	numB, letterB, errB := parseCamelot(b)
	if errA != nil || errB != nil {
		return RelationNone
	}

	if numA == numB && letterA == letterB {
		return RelationSame
	}
	if letterA != letterB {
		return RelationNone
	}

	up := numA%12 + 1
	down := numA - 1
	if down < 1 {
		down = 12
	}
	switch numB {
	case up:
		return RelationEnergyBoost
	case down:
		return RelationEnergyDrop
	}
	return RelationNone
}
