package stepper

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/quantity"
	"github.com/san-kum/statespace/internal/statespace"
)

var (
	oscState = statespace.MustSchema(
		statespace.F("q", unit.Length(0)),
		statespace.Field{Name: "p", Dims: quantity.Velocity},
	)
	keyQ = oscState.MustKey("q")
	keyP = oscState.MustKey("p")
)

// oscillator is q'' = -q with unit angular frequency.
func oscillator(_ time.Duration, x statespace.Vector) (statespace.Vector, error) {
	d := statespace.Zero(x.Schema().Derivative(1))
	d.SetFloat(keyQ, x.Float(keyP))
	d.SetFloat(keyP, -x.Float(keyQ))
	return d, nil
}

func oscillatorMutate(x statespace.Vector, dxdt *statespace.Vector, t time.Duration) error {
	d, err := oscillator(t, x)
	if err != nil {
		return err
	}
	*dxdt = d
	return nil
}

func constant(k []float64) Func {
	return func(_ time.Duration, x statespace.Vector) (statespace.Vector, error) {
		return statespace.FromFloats(x.Schema().Derivative(1), k)
	}
}

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()
	x, _ := statespace.FromFloats(oscState, []float64{1, 0})
	dt := 10 * time.Millisecond
	steps := 100

	var err error
	for i := 0; i < steps; i++ {
		x, err = integ.Step(oscillator, x, time.Duration(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	tEnd := float64(steps) * dt.Seconds()
	if got, want := x.Float(keyQ), math.Cos(tEnd); math.Abs(got-want) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", got, want)
	}
	if got, want := x.Float(keyP), -math.Sin(tEnd); math.Abs(got-want) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", got, want)
	}
}

func TestRK4ConstantDerivativeIsExact(t *testing.T) {
	tests := []struct {
		name string
		x0   []float64
		k    []float64
		dt   time.Duration
	}{
		{"quarter second", []float64{1, 0}, []float64{2.5, 0}, 250 * time.Millisecond},
		{"half second", []float64{-3, 4}, []float64{0.5, -1.5}, 500 * time.Millisecond},
		{"whole second", []float64{0, 0}, []float64{8, 0.125}, time.Second},
		{"zero derivative", []float64{7, 10}, []float64{0, 0}, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _ := statespace.FromFloats(oscState, tt.x0)
			got, err := NewRK4().Step(constant(tt.k), x, 0, tt.dt)
			if err != nil {
				t.Fatal(err)
			}
			h := tt.dt.Seconds()
			for i, v := range got.Floats() {
				if want := tt.x0[i] + float64(tt.k[i]*h); v != want {
					t.Errorf("field %d = %v, want exactly %v", i, v, want)
				}
			}
			if got.Schema() != oscState {
				t.Errorf("result schema = %v, want state schema", got.Schema())
			}
		})
	}
}

func TestRK4ConstantDerivativeIsExactForArbitraryValues(t *testing.T) {
	values := []float64{0.1, -0.3, 1.0 / 3, 2.7182818284590455, 1e-7, -123.456, 6.02214076e23, 0}
	steps := []time.Duration{time.Millisecond, 10 * time.Millisecond, 100 * time.Millisecond, 333 * time.Millisecond, 1700 * time.Millisecond}

	for _, x0 := range values {
		for _, k := range values {
			for _, dt := range steps {
				x, _ := statespace.FromFloats(oscState, []float64{x0, k})
				got, err := NewRK4().Step(constant([]float64{k, x0}), x, 0, dt)
				if err != nil {
					t.Fatal(err)
				}
				h := dt.Seconds()
				want := []float64{x0 + float64(k*h), k + float64(x0*h)}
				if diff := cmp.Diff(want, got.Floats()); diff != "" {
					t.Errorf("x0=%v k=%v dt=%v (-want +got):\n%s", x0, k, dt, diff)
				}
			}
		}
	}
}

func TestRK4Deterministic(t *testing.T) {
	x, _ := statespace.FromFloats(oscState, []float64{0.3, -1.2})
	a, _ := NewRK4().Step(oscillator, x, 0, 37*time.Millisecond)
	b, _ := NewRK4().Step(oscillator, x, 0, 37*time.Millisecond)
	if !a.Equal(b) {
		t.Errorf("repeated steps differ: %v vs %v", a, b)
	}
}

func TestRK4PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	f := func(_ time.Duration, x statespace.Vector) (statespace.Vector, error) {
		calls++
		if calls == 3 {
			return statespace.Vector{}, boom
		}
		return statespace.Zero(x.Schema().Derivative(1)), nil
	}

	x := statespace.Zero(oscState)
	if _, err := NewRK4().Step(f, x, 0, time.Second); !errors.Is(err, boom) {
		t.Errorf("Step error = %v, want boom", err)
	}
}

func TestEulerDoStep(t *testing.T) {
	x, _ := statespace.FromFloats(oscState, []float64{1, 2})
	if err := NewEuler().DoStep(oscillatorMutate, &x, 0, 500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	// q += 0.5*p, p -= 0.5*q
	if got := x.Floats(); got[0] != 2 || got[1] != 1.5 {
		t.Errorf("Euler step = %v, want [2 1.5]", got)
	}
}

func TestEulerApproximatesOscillator(t *testing.T) {
	x, _ := statespace.FromFloats(oscState, []float64{1, 0})
	dt := time.Millisecond
	for i := 0; i < 1000; i++ {
		if err := NewEuler().DoStep(oscillatorMutate, &x, time.Duration(i)*dt, dt); err != nil {
			t.Fatal(err)
		}
	}
	if !scalar.EqualWithinAbs(x.Float(keyQ), math.Cos(1), 1e-2) {
		t.Errorf("q(1s) = %v, want ~%v", x.Float(keyQ), math.Cos(1))
	}
}

type dual struct{}

func (dual) Step(f Func, x statespace.Vector, t, dt time.Duration) (statespace.Vector, error) {
	return x, nil
}

func (dual) DoStep(MutateFunc, *statespace.Vector, time.Duration, time.Duration) error { return nil }

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		s       any
		want    Kind
		wantErr bool
	}{
		{"rk4", NewRK4(), KindValue, false},
		{"euler", NewEuler(), KindMutating, false},
		{"both prefers step", dual{}, KindValue, false},
		{"neither", struct{}{}, 0, true},
		{"nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.s)
			if tt.wantErr {
				if !errors.Is(err, dynamo.ErrStepperShape) {
					t.Errorf("Classify error = %v, want ErrStepperShape", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	x, _ := statespace.FromFloats(oscState, []float64{1, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = integrator.DoStep(oscillatorMutate, &x, 0, 10*time.Millisecond)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	x, _ := statespace.FromFloats(oscState, []float64{1, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(oscillator, x, 0, 10*time.Millisecond)
	}
}
