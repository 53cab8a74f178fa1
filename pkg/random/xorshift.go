package random

// defaultState 黄金分割常数，用于替换零状态
const defaultState = 0x9e3779b97f4a7c15

// XorShift64Star 是一个快速的伪随机数生成器
// 注意：不适用于加密场景，仅用于可复现的随机数生成
// 单个实例不是并发安全的，需要并发时请为每个 goroutine 创建独立实例
type XorShift64Star struct {
	s uint64
}

// NewXorShift64Star 创建一个新的随机数生成器
// seed: 初始状态，如果为 0 则使用默认状态（xorshift 的零状态是不动点）
func NewXorShift64Star(seed uint64) *XorShift64Star {
	if seed == 0 {
		seed = defaultState
	}
	return &XorShift64Star{s: seed}
}

// next64 推进状态并返回下一个 64 位随机数
func (g *XorShift64Star) next64() uint64 {
	x := g.s
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	g.s = x
	return x * 2685821657736338717
}

// Uint64 生成 64 位随机数
func (g *XorShift64Star) Uint64() uint64 {
	return g.next64()
}

// Float64 生成 [0, 1) 区间内均匀分布的浮点数
// 取高 53 位，低位的统计质量较差
func (g *XorShift64Star) Float64() float64 {
	return float64(g.next64()>>11) * (1.0 / (1 << 53))
}

// State 返回当前状态，用于检查点
func (g *XorShift64Star) State() uint64 {
	return g.s
}
