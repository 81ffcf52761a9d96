package trajectory_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/models"
	"github.com/san-kum/statespace/internal/quantity"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/stepper"
	"github.com/san-kum/statespace/internal/system"
	"github.com/san-kum/statespace/internal/trajectory"
)

var keyV = models.BicycleState.MustKey("v")

func bicycleSystem(form system.Form) *system.System {
	sys, err := models.NewSystem(models.NewBicycle(), form)
	Expect(err).NotTo(HaveOccurred())
	return sys
}

var _ = Describe("Iterator", func() {
	var (
		bike *models.Bicycle
		x0   statespace.Vector
		u    statespace.Vector
	)

	BeforeEach(func() {
		bike = models.NewBicycle()
		x0 = bike.DefaultState()
		u = bike.DefaultInput()
	})

	Describe("the bicycle scenario", func() {
		It("yields 30 uniformly spaced samples with constant speed", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 3*time.Second, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			var times []time.Duration
			for t, x := range it.All() {
				times = append(times, t)
				Expect(x.Get(keyV).Equal(quantity.New(10, quantity.Velocity))).To(BeTrue(), "v at %v is %v", t, x.Get(keyV))
			}
			Expect(it.Err()).NotTo(HaveOccurred())

			Expect(times).To(HaveLen(30))
			for i, t := range times {
				Expect(t).To(Equal(time.Duration(i+1) * 100 * time.Millisecond))
			}
			Expect(it.AtEnd()).To(BeTrue())
		})

		It("turns left under positive steering", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, time.Second, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			for it.Next() {
			}
			_, x := it.Current()
			Expect(x.Float(models.BicycleState.MustKey("y"))).To(BeNumerically(">", 0))
			Expect(x.Float(models.BicycleState.MustKey("yaw"))).To(BeNumerically(">", 0))
		})
	})

	Describe("construction", func() {
		It("is at its end immediately for a zero span", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 0, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			Expect(it.AtEnd()).To(BeTrue())

			count := 0
			for range it.All() {
				count++
			}
			Expect(count).To(Equal(0))
			Expect(it.Advance()).To(MatchError(dynamo.ErrExhausted))
		})

		It("accepts a zero step when the span is zero", func() {
			_, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 0, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("rejects invalid spans",
			func(span, step time.Duration) {
				_, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, span, step)
				Expect(errors.Is(err, dynamo.ErrInvalidSpan)).To(BeTrue(), "got %v", err)
			},
			Entry("negative span", -time.Second, 100*time.Millisecond),
			Entry("zero step", time.Second, time.Duration(0)),
			Entry("negative step", time.Second, -time.Millisecond),
		)

		It("rejects a state of the wrong schema", func() {
			_, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), u, u, time.Second, time.Millisecond)
			Expect(errors.Is(err, dynamo.ErrShape)).To(BeTrue())
		})

		It("rejects an unclassifiable stepper", func() {
			_, err := trajectory.New(bicycleSystem(system.FormDirect), struct{}{}, x0, u, time.Second, time.Millisecond)
			Expect(errors.Is(err, dynamo.ErrStepperShape)).To(BeTrue())
		})

		It("copies the initial state", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, time.Second, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			x0.SetFloat(keyV, 99)
			_, x := it.Current()
			Expect(x.Float(keyV)).To(Equal(10.0))
		})
	})

	Describe("overshoot", func() {
		It("clips the last step onto the span", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 250*time.Millisecond, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			var times []time.Duration
			for t := range it.All() {
				times = append(times, t)
			}
			Expect(times).To(Equal([]time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}))
		})
	})

	Describe("forms and stepper kinds", func() {
		collect := func(sys *system.System, st any) []statespace.Vector {
			it, err := trajectory.New(sys, st, x0, u, 2*time.Second, 50*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			var xs []statespace.Vector
			for _, x := range it.All() {
				xs = append(xs, x)
			}
			Expect(it.Err()).NotTo(HaveOccurred())
			return xs
		}

		expectClose := func(a, b []statespace.Vector) {
			Expect(a).To(HaveLen(len(b)))
			for i := range a {
				af, bf := a[i].Floats(), b[i].Floats()
				for j := range af {
					Expect(af[j]).To(BeNumerically("~", bf[j], 1e-9))
				}
			}
		}

		It("produces the same trajectory for both forms under RK4", func() {
			expectClose(
				collect(bicycleSystem(system.FormDirect), stepper.NewRK4()),
				collect(bicycleSystem(system.FormExternal), stepper.NewRK4()),
			)
		})

		It("produces the same trajectory for both forms under Euler", func() {
			expectClose(
				collect(bicycleSystem(system.FormDirect), stepper.NewEuler()),
				collect(bicycleSystem(system.FormExternal), stepper.NewEuler()),
			)
		})

		It("does not mutate samples already yielded by a mutating stepper", func() {
			xs := collect(bicycleSystem(system.FormExternal), stepper.NewEuler())
			Expect(xs[0].Float(models.BicycleState.MustKey("x"))).To(BeNumerically("<", xs[len(xs)-1].Float(models.BicycleState.MustKey("x"))))
		})
	})

	Describe("equality", func() {
		It("compares positions, not states", func() {
			sys := bicycleSystem(system.FormDirect)
			a, _ := trajectory.New(sys, stepper.NewRK4(), x0, u, time.Second, 100*time.Millisecond)
			other := x0.Clone()
			other.SetFloat(keyV, 3)
			b, _ := trajectory.New(sys, stepper.NewRK4(), other, u, time.Second, 100*time.Millisecond)

			Expect(a.Equal(b)).To(BeTrue())
			Expect(a.Advance()).To(Succeed())
			Expect(a.Equal(b)).To(BeFalse())
			Expect(b.Advance()).To(Succeed())
			Expect(a.Equal(b)).To(BeTrue())
		})

		It("matches the end sentinel only at the end", func() {
			it, _ := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 200*time.Millisecond, 100*time.Millisecond)
			end := trajectory.End()

			Expect(it.Equal(end)).To(BeFalse())
			Expect(end.Equal(it)).To(BeFalse())
			for it.Next() {
			}
			Expect(it.Equal(end)).To(BeTrue())
			Expect(end.Equal(it)).To(BeTrue())
			Expect(end.Equal(trajectory.End())).To(BeTrue())
		})

		It("treats nil as the end sentinel", func() {
			it, _ := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, 100*time.Millisecond, 100*time.Millisecond)
			var none *trajectory.Iterator

			Expect(it.Equal(nil)).To(BeFalse())
			Expect(none.Equal(it)).To(BeFalse())
			Expect(it.Advance()).To(Succeed())
			Expect(it.Equal(nil)).To(BeTrue())
			Expect(none.Equal(trajectory.End())).To(BeTrue())
			Expect(none.Equal(nil)).To(BeTrue())
		})
	})

	Describe("value semantics", func() {
		It("keeps the input fixed when the transition function writes to it", func() {
			inner := bicycleSystem(system.FormDirect)
			keyA := models.BicycleInput.MustKey("a")
			sys := system.MustNew(models.BicycleState, models.BicycleInput,
				func(x, u statespace.Vector, t time.Duration) (statespace.Vector, error) {
					d, err := inner.Evaluate(x, u, t)
					u.SetFloat(keyA, u.Float(keyA)+1)
					return d, err
				})

			for _, st := range []any{stepper.NewRK4(), stepper.NewEuler()} {
				it, err := trajectory.New(sys, st, x0, u, 300*time.Millisecond, 100*time.Millisecond)
				Expect(err).NotTo(HaveOccurred())
				for t, x := range it.All() {
					Expect(x.Float(keyV)).To(Equal(10.0), "v at %v with %T", t, st)
				}
				Expect(it.Err()).NotTo(HaveOccurred())
			}
			Expect(u.Float(keyA)).To(Equal(0.0))
		})

		It("keeps the state when the transition function writes to it", func() {
			inner := bicycleSystem(system.FormDirect)
			sys := system.MustNew(models.BicycleState, models.BicycleInput,
				func(x, u statespace.Vector, t time.Duration) (statespace.Vector, error) {
					d, err := inner.Evaluate(x, u, t)
					x.SetFloat(keyV, 0)
					return d, err
				})

			it, err := trajectory.New(sys, stepper.NewRK4(), x0, u, 300*time.Millisecond, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			for _, x := range it.All() {
				Expect(x.Float(keyV)).To(Equal(10.0))
			}
			Expect(x0.Float(keyV)).To(Equal(10.0))
		})

		It("is unaffected by callers writing to yielded samples", func() {
			it, err := trajectory.New(bicycleSystem(system.FormDirect), stepper.NewRK4(), x0, u, time.Second, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			Expect(it.Advance()).To(Succeed())
			_, x := it.Current()
			x.SetFloat(keyV, -5)
			_, again := it.Current()
			Expect(again.Float(keyV)).To(Equal(10.0))

			Expect(it.Advance()).To(Succeed())
			_, next := it.Current()
			Expect(next.Float(keyV)).To(Equal(10.0))
		})

		It("binds an external transition function once per trajectory", func() {
			binds := 0
			bike := models.NewBicycle()
			sys := system.MustNew(models.BicycleState, models.BicycleInput,
				system.ExternalFunc(func(u statespace.Vector) system.MutateFunc {
					binds++
					return bike.External()(u)
				}))

			for _, st := range []any{stepper.NewRK4(), stepper.NewEuler()} {
				binds = 0
				it, err := trajectory.New(sys, st, x0, u, 500*time.Millisecond, 100*time.Millisecond)
				Expect(err).NotTo(HaveOccurred())
				for it.Next() {
				}
				Expect(it.Err()).NotTo(HaveOccurred())
				Expect(it.Steps()).To(Equal(5))
				Expect(binds).To(Equal(1), "binds with %T", st)
			}
		})
	})

	Describe("errors", func() {
		It("stops and reports transition failures with their position", func() {
			boom := errors.New("boom")
			sys := system.MustNew(models.BicycleState, models.BicycleInput,
				func(x, u statespace.Vector, t time.Duration) (statespace.Vector, error) {
					if t > 200*time.Millisecond {
						return statespace.Vector{}, boom
					}
					return statespace.Zero(x.Schema().Derivative(1)), nil
				})

			it, err := trajectory.New(sys, stepper.NewRK4(), x0, u, time.Second, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			n := 0
			for range it.All() {
				n++
			}
			Expect(n).To(Equal(2))
			Expect(it.Err()).To(MatchError(boom))

			var se *dynamo.SimulationError
			Expect(errors.As(it.Err(), &se)).To(BeTrue())
			Expect(se.Step).To(Equal(2))
			Expect(se.Elapsed).To(Equal(200 * time.Millisecond))
			Expect(it.Next()).To(BeFalse())
		})
	})
})
