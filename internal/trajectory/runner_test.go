package trajectory_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/models"
	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/stepper"
	"github.com/san-kum/statespace/internal/system"
	"github.com/san-kum/statespace/internal/trajectory"
)

type countingMetric struct {
	count int
	sum   float64
	key   statespace.Key
}

func (m *countingMetric) Name() string { return "test" }
func (m *countingMetric) Observe(_ time.Duration, x, _ statespace.Vector) {
	m.count++
	m.sum += x.Float(m.key)
}
func (m *countingMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *countingMetric) Reset() {
	m.count = 0
	m.sum = 0
}

var _ = Describe("Runner", func() {
	var (
		spring *models.SpringMass
		sys    *system.System
		cfg    trajectory.Config
	)

	BeforeEach(func() {
		spring = models.NewSpringMass()
		spring.Damping = 0
		var err error
		sys, err = models.NewSystem(spring, system.FormDirect)
		Expect(err).NotTo(HaveOccurred())
		cfg = trajectory.Config{Step: 10 * time.Millisecond, Span: time.Second}
	})

	It("collects the initial sample and one sample per step", func() {
		res, err := trajectory.NewRunner(sys, stepper.NewRK4()).Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Samples).To(HaveLen(101))
		Expect(res.StepsTaken).To(Equal(100))
		Expect(res.Samples[0].Elapsed).To(BeZero())
		Expect(res.Final().Elapsed).To(Equal(time.Second))

		omega := math.Sqrt(models.DefaultStiffness / models.DefaultMass)
		pos := res.Final().State.Float(models.SpringMassState.MustKey("pos"))
		Expect(pos).To(BeNumerically("~", math.Cos(omega), 1e-5))
	})

	It("feeds metrics and observers every sample", func() {
		r := trajectory.NewRunner(sys, stepper.NewRK4())
		metric := &countingMetric{key: models.SpringMassState.MustKey("pos")}
		r.AddMetric(metric)

		var seen []time.Duration
		r.AddObserver(trajectory.ObserverFunc(func(t time.Duration, _, _ statespace.Vector) {
			seen = append(seen, t)
		}))

		res, err := r.Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(metric.count).To(Equal(101))
		Expect(res.Metrics).To(HaveKey("test"))
		Expect(seen).To(HaveLen(101))
		Expect(seen[0]).To(BeZero())
	})

	It("resets metrics between runs", func() {
		r := trajectory.NewRunner(sys, stepper.NewRK4())
		metric := &countingMetric{key: models.SpringMassState.MustKey("pos")}
		r.AddMetric(metric)

		for range 2 {
			_, err := r.Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(metric.count).To(Equal(101))
	})

	It("stops on cancellation and returns the partial result", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := trajectory.NewRunner(sys, stepper.NewRK4())
		r.AddObserver(trajectory.ObserverFunc(func(t time.Duration, _, _ statespace.Vector) {
			if t >= 100*time.Millisecond {
				cancel()
			}
		}))

		res, err := r.Run(ctx, spring.DefaultState(), spring.DefaultInput(), cfg)
		Expect(errors.Is(err, dynamo.ErrContextCanceled)).To(BeTrue())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.Samples).To(HaveLen(11))
	})

	It("reports invalid states when validation is on", func() {
		blowup := system.MustNew(models.SpringMassState, models.SpringMassInput,
			func(x, _ statespace.Vector, t time.Duration) (statespace.Vector, error) {
				v := math.Inf(1)
				if t < 30*time.Millisecond {
					v = 0
				}
				return statespace.FromFloats(x.Schema().Derivative(1), []float64{v, 0})
			})

		cfg.ValidateState = true
		res, err := trajectory.NewRunner(blowup, stepper.NewEuler()).Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)

		var se *dynamo.SimulationError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
		Expect(se.Elapsed).To(Equal(40 * time.Millisecond))
		Expect(res.Samples).To(HaveLen(4))
	})

	It("rejects an invalid configuration", func() {
		cfg.Step = 0
		_, err := trajectory.NewRunner(sys, stepper.NewRK4()).Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)
		Expect(errors.Is(err, dynamo.ErrInvalidSpan)).To(BeTrue())
	})

	It("logs run boundaries at debug level", func() {
		var buf bytes.Buffer
		r := trajectory.NewRunner(sys, stepper.NewRK4())
		r.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

		_, err := r.Run(context.Background(), spring.DefaultState(), spring.DefaultInput(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("run started"))
		Expect(buf.String()).To(ContainSubstring("run finished"))
	})
})

var _ = Describe("RunEnsemble", func() {
	newJob := func(name string, st any, speed float64) trajectory.Job {
		bike := models.NewBicycle()
		sys, err := models.NewSystem(bike, system.FormDirect)
		Expect(err).NotTo(HaveOccurred())

		x0 := bike.DefaultState()
		x0.SetFloat(keyV, speed)
		return trajectory.Job{
			Name:   name,
			Runner: trajectory.NewRunner(sys, st),
			X0:     x0,
			U:      bike.DefaultInput(),
			Config: trajectory.Config{Step: 100 * time.Millisecond, Span: time.Second},
		}
	}

	It("returns results in job order", func() {
		jobs := []trajectory.Job{
			newJob("slow", stepper.NewRK4(), 1),
			newJob("medium", stepper.NewEuler(), 5),
			newJob("fast", stepper.NewRK4(), 20),
		}

		results, err := trajectory.RunEnsemble(context.Background(), jobs, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, want := range []float64{1, 5, 20} {
			Expect(results[i].Final().State.Float(keyV)).To(Equal(want))
			Expect(results[i].Samples).To(HaveLen(11))
		}
	})

	It("fails when any job fails", func() {
		bad := newJob("bad", stepper.NewRK4(), 1)
		bad.Config.Step = -time.Second

		_, err := trajectory.RunEnsemble(context.Background(), []trajectory.Job{newJob("ok", stepper.NewRK4(), 1), bad}, 0)
		Expect(errors.Is(err, dynamo.ErrInvalidSpan)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("bad"))
	})
})
