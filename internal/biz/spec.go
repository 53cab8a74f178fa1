package biz

import (
	"math"

	"randomizer/pkg/random"
)

// DrawKind 抽样类型
type DrawKind string

const (
	KindNumbers  DrawKind = "numbers"
	KindIntegers DrawKind = "integers"
	KindBooleans DrawKind = "booleans"
	KindSeeds    DrawKind = "seeds"
	KindChoices  DrawKind = "choices"
	KindWeighted DrawKind = "weighted"
	KindArrays   DrawKind = "arrays"
)

// maxSpecDepth 数组嵌套的最大深度
const maxSpecDepth = 8

// DrawSpec 抽样描述（值对象）
// 由服务层从请求解码，在流的 Randomizer 上构造对应的采样函数
type DrawSpec struct {
	Kind       DrawKind
	Min        float64   // numbers / integers
	Max        float64   // numbers / integers
	Step       *float64  // numbers，可选
	Bias       *float64  // booleans，可选，默认 0.5
	Items      []any     // choices / weighted
	Weights    []float64 // weighted
	Length     int       // arrays，固定长度
	LengthSpec *DrawSpec // arrays，动态长度，必须是 integers
	Item       *DrawSpec // arrays，元素
}

// samplerLimits 构造采样函数时的上限
type samplerLimits struct {
	maxArrayLength int // 单层数组的最大长度
	maxValues      int // 单次抽样最多产生的叶子值个数
}

// buildSampler 在 r 上构造采样函数
// 参数校验全部在这里完成，构造本身不推进 r 的状态。
// 第二个返回值是单次抽样最坏情况下产生的叶子值个数，嵌套数组按各层最大长度相乘。
func buildSampler(r *random.Randomizer, spec *DrawSpec, lim samplerLimits, depth int) (func() any, int, error) {
	if spec == nil {
		return nil, 0, invalidDrawSpec("draw spec is required")
	}
	if depth > maxSpecDepth {
		return nil, 0, invalidDrawSpec("arrays nested deeper than %d", maxSpecDepth)
	}

	switch spec.Kind {
	case KindNumbers:
		var (
			fn  func() float64
			err error
		)
		if spec.Step != nil {
			fn, err = r.Numbers(spec.Min, spec.Max, *spec.Step)
		} else {
			fn, err = r.Numbers(spec.Min, spec.Max)
		}
		if err != nil {
			return nil, 0, err
		}
		return func() any { return fn() }, 1, nil

	case KindIntegers:
		fn, err := buildIntegers(r, spec)
		if err != nil {
			return nil, 0, err
		}
		return func() any { return int64(fn()) }, 1, nil

	case KindBooleans:
		var (
			fn  func() bool
			err error
		)
		if spec.Bias != nil {
			fn, err = r.Booleans(*spec.Bias)
		} else {
			fn, err = r.Booleans()
		}
		if err != nil {
			return nil, 0, err
		}
		return func() any { return fn() }, 1, nil

	case KindSeeds:
		fn := r.Seeds()
		return func() any { return fn() }, 1, nil

	case KindChoices:
		fn, err := random.Choices(r, spec.Items)
		return fn, 1, err

	case KindWeighted:
		fn, err := random.WeightedChoices(r, spec.Items, spec.Weights)
		return fn, 1, err

	case KindArrays:
		item, itemCost, err := buildSampler(r, spec.Item, lim, depth+1)
		if err != nil {
			return nil, 0, err
		}
		length, maxLen, err := buildLength(r, spec, lim.maxArrayLength)
		if err != nil {
			return nil, 0, err
		}
		fn, err := random.Arrays(length, item)
		if err != nil {
			return nil, 0, err
		}
		// 空数组也算一个值；itemCost <= maxValues 且 maxLen <= maxArrayLength，乘积不会溢出
		cost := maxLen * itemCost
		if cost < 1 {
			cost = 1
		}
		if cost > lim.maxValues {
			return nil, 0, tooManyDraws("nested arrays produce up to %d values per draw, limit %d", cost, lim.maxValues)
		}
		return func() any { return fn() }, cost, nil

	default:
		return nil, 0, invalidDrawSpec("unknown draw kind %q", spec.Kind)
	}
}

// buildLength 返回数组长度及其上界
func buildLength(r *random.Randomizer, spec *DrawSpec, maxArrayLength int) (random.Length, int, error) {
	if spec.LengthSpec == nil {
		if spec.Length > maxArrayLength {
			return nil, 0, invalidDrawSpec("array length %d exceeds limit %d", spec.Length, maxArrayLength)
		}
		return random.FixedLength(spec.Length), max(spec.Length, 0), nil
	}
	if spec.LengthSpec.Kind != KindIntegers {
		return nil, 0, invalidDrawSpec("dynamic array length must be integers, got %q", spec.LengthSpec.Kind)
	}
	if spec.LengthSpec.Max > float64(maxArrayLength) {
		return nil, 0, invalidDrawSpec("array length up to %v exceeds limit %d", spec.LengthSpec.Max, maxArrayLength)
	}
	fn, err := buildIntegers(r, spec.LengthSpec)
	if err != nil {
		return nil, 0, err
	}
	// 负数长度产生空数组
	return random.DynamicLength(fn), max(int(spec.LengthSpec.Max), 0), nil
}

func buildIntegers(r *random.Randomizer, spec *DrawSpec) (func() int, error) {
	min, ok := toInt(spec.Min)
	if !ok {
		return nil, invalidDrawSpec("integers min must be an integer, got %v", spec.Min)
	}
	max, ok := toInt(spec.Max)
	if !ok {
		return nil, invalidDrawSpec("integers max must be an integer, got %v", spec.Max)
	}
	return r.Integers(min, max)
}

// toInt 将 JSON 数字转换为 int，非整数或超出精确表示范围时失败
func toInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}
