package random

import "github.com/cespare/xxhash/v2"

// HashSeed 将种子字符串映射为生成器的初始状态
// 相同的输入总是得到相同的输出；空字符串返回 ErrInvalidSeed
func HashSeed(seed string) (uint64, error) {
	if seed == "" {
		return 0, ErrInvalidSeed
	}
	h := xxhash.Sum64String(seed)
	if h == 0 {
		h = defaultState
	}
	return h, nil
}
