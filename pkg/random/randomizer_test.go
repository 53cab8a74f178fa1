package random

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

const exampleSeed = "Example seed."

var _ rand.Source = (*Randomizer)(nil)

func mustCreate(t testing.TB, seed string) *Randomizer {
	t.Helper()
	r, err := Create(seed)
	if err != nil {
		t.Fatalf("Create(%q) error: %v", seed, err)
	}
	return r
}

func TestCreate_InvalidSeed(t *testing.T) {
	_, err := Create("")
	if !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("Create(\"\") error = %v, want ErrInvalidSeed", err)
	}
}

func TestHashSeed(t *testing.T) {
	a, err := HashSeed(exampleSeed)
	if err != nil {
		t.Fatalf("HashSeed error: %v", err)
	}
	b, _ := HashSeed(exampleSeed)
	if a != b {
		t.Fatalf("HashSeed not pure: %#x != %#x", a, b)
	}
	c, _ := HashSeed(exampleSeed + "x")
	if a == c {
		t.Fatalf("HashSeed(%q) == HashSeed(%q)", exampleSeed, exampleSeed+"x")
	}
	if a == 0 {
		t.Fatal("HashSeed returned zero state")
	}
}

// 相同种子的新实例，第一次 numbers(1, 10) 结果相同
func TestRandomizer_SameSeedSameFirstNumber(t *testing.T) {
	n1, err := mustCreate(t, exampleSeed).Numbers(1, 10)
	if err != nil {
		t.Fatalf("Numbers error: %v", err)
	}
	n2, _ := mustCreate(t, exampleSeed).Numbers(1, 10)
	if x, x2 := n1(), n2(); x != x2 {
		t.Fatalf("first draws differ: %v != %v", x, x2)
	}
}

func TestRandomizer_DifferentSeedsDiverge(t *testing.T) {
	n1, _ := mustCreate(t, exampleSeed).Numbers(1, 10)
	n2, _ := mustCreate(t, exampleSeed+"x").Numbers(1, 10)
	if x, x2 := n1(), n2(); x == x2 {
		t.Fatalf("first draws for different seeds are equal: %v", x)
	}
}

// 固定调用顺序下，所有采样函数的输出完全可复现
func TestRandomizer_Deterministic(t *testing.T) {
	run := func() string {
		r := mustCreate(t, exampleSeed)
		nums, _ := r.Numbers(0, 100, 7)
		ints, _ := r.Integers(-5, 5)
		bools, _ := r.Booleans(0.3)
		seeds := r.Seeds()
		picks, _ := Choices(r, []string{"guest", "member", "vip"})
		arrs, _ := Arrays(FixedLength(3), ints)

		var sb strings.Builder
		for i := 0; i < 200; i++ {
			fmt.Fprintf(&sb, "%v|%v|%v|%v|%v|%v\n", nums(), ints(), bools(), seeds(), picks(), arrs())
		}
		return sb.String()
	}

	if a, b := run(), run(); a != b {
		t.Fatal("identical seed and call order produced different output")
	}
}

func TestRandomizer_DrawsCount(t *testing.T) {
	r := mustCreate(t, exampleSeed)
	nums, _ := r.Numbers(0, 1)
	for i := 0; i < 10; i++ {
		nums()
	}
	seeds := r.Seeds()
	seeds()
	if got := r.Draws(); got != 12 {
		t.Fatalf("Draws() = %d, want 12", got)
	}
}

func TestRandomizer_CheckpointRestore(t *testing.T) {
	r := mustCreate(t, exampleSeed)
	nums, _ := r.Numbers(0, 1000)
	for i := 0; i < 37; i++ {
		nums()
	}

	cp := r.Checkpoint()
	if cp.Seed != exampleSeed || cp.Draws != 37 {
		t.Fatalf("Checkpoint() = %+v", cp)
	}

	want := make([]float64, 10)
	for i := range want {
		want[i] = nums()
	}

	restored, err := Restore(cp)
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	rnums, _ := restored.Numbers(0, 1000)
	for i, w := range want {
		if got := rnums(); got != w {
			t.Fatalf("draw %d after restore = %v, want %v", i, got, w)
		}
	}
	if restored.Draws() != r.Draws() {
		t.Fatalf("restored Draws() = %d, want %d", restored.Draws(), r.Draws())
	}
}

func TestRestore_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cp   Checkpoint
		want error
	}{
		{"empty seed", Checkpoint{State: 1}, ErrInvalidSeed},
		{"zero state", Checkpoint{Seed: "s"}, ErrInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(tt.cp); !errors.Is(err, tt.want) {
				t.Errorf("Restore(%+v) error = %v, want %v", tt.cp, err, tt.want)
			}
		})
	}
}

func TestRandomizer_MathRandSource(t *testing.T) {
	p1 := rand.New(mustCreate(t, exampleSeed)).Perm(20)
	p2 := rand.New(mustCreate(t, exampleSeed)).Perm(20)
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("Perm differs at %d: %v vs %v", i, p1, p2)
		}
	}
}

func TestRandomizer_Read(t *testing.T) {
	b1 := make([]byte, 37)
	b2 := make([]byte, 37)
	n, err := mustCreate(t, exampleSeed).Read(b1)
	if err != nil || n != len(b1) {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	_, _ = mustCreate(t, exampleSeed).Read(b2)
	if !bytes.Equal(b1, b2) {
		t.Fatal("Read produced different bytes for the same seed")
	}
	if bytes.Equal(b1, make([]byte, 37)) {
		t.Fatal("Read produced all zero bytes")
	}
}

// 每个 goroutine 独立实例，并行运行的结果与顺序运行一致
func TestRandomizer_IndependentInstancesInParallel(t *testing.T) {
	const workers = 8
	draw := func(seed string) ([]int, error) {
		r, err := Create(seed)
		if err != nil {
			return nil, err
		}
		ints, err := r.Integers(0, 1000)
		if err != nil {
			return nil, err
		}
		out := make([]int, 1000)
		for i := range out {
			out[i] = ints()
		}
		return out, nil
	}

	var parallel [workers][]int
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			out, err := draw(fmt.Sprintf("worker-%d", w))
			parallel[w] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("parallel draw error: %v", err)
	}

	for w := 0; w < workers; w++ {
		seq, _ := draw(fmt.Sprintf("worker-%d", w))
		for i := range seq {
			if seq[i] != parallel[w][i] {
				t.Fatalf("worker %d draw %d: parallel %d, sequential %d", w, i, parallel[w][i], seq[i])
			}
		}
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Create(exampleSeed, WithLogger(log.NewStdLogger(&buf))); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !strings.Contains(buf.String(), "randomizer created") {
		t.Fatalf("log output = %q, want construction message", buf.String())
	}
}

func BenchmarkRandomizer_Numbers(b *testing.B) {
	r := mustCreate(b, exampleSeed)
	nums, _ := r.Numbers(1, 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = nums()
	}
}

func BenchmarkRandomizer_Seeds(b *testing.B) {
	seeds := mustCreate(b, exampleSeed).Seeds()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = seeds()
	}
}
