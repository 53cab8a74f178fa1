package random

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Numbers 返回 [min, max) 内均匀分布的浮点数采样函数
// 可选参数 step 只能有一个：给定时每个结果都是 step 的整数倍 k*step，且仍落在 [min, max) 内
// 结果按 float64 计算 k*step：step 可精确表示时（如 0.25、7）math.Mod(x, step) 为 0，
// 不可精确表示时（如 0.1）结果是 k*step 的最近浮点值，取模可能留下舍入误差。
func (r *Randomizer) Numbers(min, max float64, step ...float64) (func() float64, error) {
	if len(step) > 1 {
		return nil, invalidArguments("numbers takes at most one step, got %d", len(step))
	}
	if !isFinite(min) || !isFinite(max) {
		return nil, invalidArguments("min and max must be finite, got min=%v max=%v", min, max)
	}
	if min >= max {
		return nil, invalidRange("min %v must be less than max %v", min, max)
	}
	width := max - min
	if math.IsInf(width, 0) {
		return nil, invalidRange("range [%v, %v) is too wide", min, max)
	}

	if len(step) == 0 {
		return func() float64 {
			x := min + r.Float64()*width
			if x >= max {
				x = math.Nextafter(max, min)
			}
			return x
		}, nil
	}

	s := step[0]
	if !isFinite(s) || s <= 0 {
		return nil, invalidArguments("step must be a positive finite number, got %v", s)
	}
	// 步长格点 {k*s : lo <= k <= hi} 是 [min, max) 内全部 s 的整数倍
	lo := math.Ceil(min / s)
	hi := math.Ceil(max/s) - 1
	if math.Abs(lo) > maxExactInt || math.Abs(hi) > maxExactInt {
		return nil, invalidArguments("step %v is too small for range [%v, %v)", s, min, max)
	}
	if lo*s < min {
		lo++
	}
	if hi*s >= max {
		hi--
	}
	if hi < lo {
		return nil, invalidRange("no multiple of step %v in [%v, %v)", s, min, max)
	}
	n := hi - lo + 1
	return func() float64 {
		k := lo + math.Floor(r.Float64()*n)
		if k > hi {
			k = hi
		}
		x := k * s
		if x == 0 {
			// 消除 -0
			x = 0
		}
		return x
	}, nil
}

// Integers 返回 [min, max] 闭区间内的整数采样函数
//
// 舍入策略：将原始抽样缩放到 [min-0.5, max+0.5) 后四舍五入（round-half-up），
// 每个整数占据等宽的区间，两个端点与中间值的概率相同。
func (r *Randomizer) Integers(min, max int) (func() int, error) {
	if max < min {
		return nil, invalidRange("min %d must not be greater than max %d", min, max)
	}
	// 无符号宽度，避免极端区间溢出
	width := uint64(max) - uint64(min)
	span := float64(width) + 1
	return func() int {
		k := uint64(r.Float64() * span)
		if k > width {
			k = width
		}
		return int(uint64(min) + k)
	}, nil
}

// Booleans 返回以概率 bias 产生 true 的采样函数，bias 默认为 0.5
// bias 为 0 时总是 false，为 1 时总是 true
func (r *Randomizer) Booleans(bias ...float64) (func() bool, error) {
	if len(bias) > 1 {
		return nil, invalidArguments("booleans takes at most one bias, got %d", len(bias))
	}
	p := 0.5
	if len(bias) == 1 {
		p = bias[0]
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, invalidRange("bias must be within [0, 1], got %v", p)
	}
	return func() bool {
		return r.Float64() < p
	}, nil
}

// Seeds 返回字符串采样函数，每次调用都产生新的种子字符串
// 结果是由两次状态推进得到的 UUIDv4 格式字符串，可直接作为其他 Randomizer 的种子
func (r *Randomizer) Seeds() func() string {
	return func() string {
		var u uuid.UUID
		binary.BigEndian.PutUint64(u[:8], r.Uint64())
		binary.BigEndian.PutUint64(u[8:], r.Uint64())
		u[6] = (u[6] & 0x0f) | 0x40 // version 4
		u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant
		return u.String()
	}
}

// Choices 返回从 items 中均匀选取元素的采样函数
// items 为空时返回 ErrEmptyCollection
func Choices[T any](r *Randomizer, items []T) (func() T, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}
	n := len(items)
	return func() T {
		i := int(r.Float64() * float64(n))
		if i >= n {
			i = n - 1
		}
		return items[i]
	}, nil
}

// WeightedChoices 返回按权重选取元素的采样函数
// 权重必须非负且总和大于 0，权重为 0 的元素永远不会被选中
func WeightedChoices[T any](r *Randomizer, items []T, weights []float64) (func() T, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCollection
	}
	if len(items) != len(weights) {
		return nil, invalidArguments("got %d items but %d weights", len(items), len(weights))
	}

	cumulative := make([]float64, len(weights))
	total := 0.0
	last := 0
	for i, w := range weights {
		if !isFinite(w) || w < 0 {
			return nil, invalidRange("weight %d must be a non-negative finite number, got %v", i, w)
		}
		total += w
		cumulative[i] = total
		if w > 0 {
			last = i
		}
	}
	if total <= 0 || math.IsInf(total, 0) {
		return nil, invalidRange("weights must sum to a positive finite number, got %v", total)
	}

	return func() T {
		target := r.Float64() * total
		i := sort.Search(len(cumulative), func(i int) bool {
			return cumulative[i] > target
		})
		if i >= len(cumulative) {
			i = last
		}
		return items[i]
	}, nil
}

// Length 数组长度，FixedLength 或 DynamicLength
type Length interface {
	next() int
}

type fixedLength int

func (l fixedLength) next() int { return int(l) }

type dynamicLength func() int

func (l dynamicLength) next() int {
	n := l()
	if n < 0 {
		return 0
	}
	return n
}

// FixedLength 固定长度
func FixedLength(n int) Length {
	return fixedLength(n)
}

// DynamicLength 每次生成数组时调用 gen 决定长度，负数视为 0
// 通常传入 Integers 返回的采样函数
func DynamicLength(gen func() int) Length {
	return dynamicLength(gen)
}

// Arrays 返回数组采样函数
// 每次调用都分配新的切片，并按顺序对每个位置调用一次 item
func Arrays[T any](length Length, item func() T) (func() []T, error) {
	switch l := length.(type) {
	case fixedLength:
		if l < 0 {
			return nil, invalidArguments("array length must not be negative, got %d", int(l))
		}
	case dynamicLength:
		if l == nil {
			return nil, invalidArguments("dynamic array length generator is nil")
		}
	default:
		return nil, invalidArguments("array length is required")
	}
	if item == nil {
		return nil, invalidArguments("array item generator is nil")
	}

	return func() []T {
		n := length.next()
		out := make([]T, n)
		for i := range out {
			out[i] = item()
		}
		return out
	}, nil
}

// maxExactInt float64 能精确表示的最大整数
const maxExactInt = 1 << 53

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
