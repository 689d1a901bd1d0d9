package castellan

// RoundScore is the pure per-seat base score for one round, before the
// redeal multiplier:
//
//   - 宣零命中: declared 0, captured 0 → +3
//   - 宣数命中: declared == captured (>0) → declared + 5
//   - 破零: declared 0, captured a>0 → -a
//   - 偏差: 其余 → -|captured - declared|
func RoundScore(declared, actual int) int {
	if declared == 0 {
		if actual == 0 {
			return 3
		}
		return -actual
	}
	if declared == actual {
		return declared + 5
	}
	diff := actual - declared
	if diff < 0 {
		diff = -diff
	}
	return -diff
}
