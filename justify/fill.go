package justify

import (
	"math"
	"math/rand/v2"
	"strings"
)

// fill 在 token 之间随机插入细空格，直到再多一个就会达到或超过 budget。
// 返回行内容与插入的细空格数量；测量结果异常（不单调、细空格无宽度）
// 或超过上限时退回普通间距的行。
//
// 行首、行尾的空 token（来自连续空格）不参与填充，只作为普通空格保留，
// 这样细空格永远不会出现在行的两端。
func (j *Justifier) fill(tokens []string, budget float64, rng *rand.Rand) (string, int) {
	plain := strings.Join(tokens, NormalSpace)

	lead, trail := 0, len(tokens)
	for lead < trail && tokens[lead] == "" {
		lead++
	}
	for trail > lead && tokens[trail-1] == "" {
		trail--
	}
	core := tokens[lead:trail]
	if len(core) < 2 {
		return plain, 0
	}
	prefix := strings.Repeat(NormalSpace, lead)
	suffix := strings.Repeat(NormalSpace, len(tokens)-trail)

	units := make([]string, 0, 4*len(core))
	for _, tok := range core {
		units = append(units, tok, NormalSpace)
	}
	line := func() string { return prefix + flatten(units) + suffix }

	thin := j.cfg.thin
	thinWidth := j.measure.Measure(thin)
	if !(thinWidth > 0) {
		return plain, 0
	}
	limit := j.fillLimit(line(), len(units), budget, thinWidth)

	inserted := 0
	for j.measure.Measure(line()+thin) < budget {
		if inserted >= limit {
			return plain, 0
		}
		// [1, len-2]：既不在行首，也不在最后一个 token 之后
		at := 1 + rng.IntN(len(units)-2)
		units = append(units, "")
		copy(units[at+1:], units[at:])
		units[at] = thin
		inserted++
	}
	return strings.TrimSuffix(line(), NormalSpace), inserted
}

func (j *Justifier) fillLimit(line string, units int, budget, thinWidth float64) int {
	if j.cfg.maxFill > 0 {
		return j.cfg.maxFill
	}
	slack := budget - j.measure.Measure(line)
	if slack <= 0 {
		return 0
	}
	n := 2*math.Ceil(slack/thinWidth) + float64(units)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func flatten(units []string) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u)
	}
	return b.String()
}
