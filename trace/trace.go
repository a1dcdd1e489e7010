// Package trace builds Jobs from the kinds of traces the original driver
// consumed: an integer-per-line core-count file, or a JSON job list, plus
// a randomized actual-runtime generator usable as a job.RuntimeFunc.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/stmobo/scheduling/job"
	"github.com/stmobo/scheduling/resource"
)

// Spec is the JSON-serializable description of a single job: a time limit
// and a resource demand vector. It round-trips through Encode/Decode
// independently of the live *job.Job state machine.
type Spec struct {
	TimeLimit int   `json:"time_limit"`
	Demand    []int `json:"demand"`
}

// FromSpecs converts a slice of Specs into freshly constructed New jobs.
func FromSpecs(specs []Spec) []*job.Job {
	jobs := make([]*job.Job, len(specs))
	for i, s := range specs {
		jobs[i] = job.NewJob(s.TimeLimit, resource.New(s.Demand))
	}
	return jobs
}

// Decode reads a JSON array of Specs from r and constructs the
// corresponding jobs.
func Decode(r io.Reader) ([]*job.Job, error) {
	var specs []Spec
	if err := json.NewDecoder(r).Decode(&specs); err != nil {
		return nil, fmt.Errorf("trace: decoding job list: %w", err)
	}
	return FromSpecs(specs), nil
}

// Encode writes jobs as a JSON array of Specs, one entry per job, suitable
// for a later Decode.
func Encode(w io.Writer, jobs []*job.Job) error {
	specs := make([]Spec, len(jobs))
	for i, j := range jobs {
		specs[i] = Spec{TimeLimit: j.TimeLimit, Demand: j.Demand.Slice()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(specs); err != nil {
		return fmt.Errorf("trace: encoding job list: %w", err)
	}
	return nil
}

// ReadCoreCountTrace reads a trace file with one integer core count per
// line, matching the original driver's ATS trace format. A core count of 1
// produces a short job (time limit 120); anything larger produces a long
// job (time limit 720), preserving the original's 1:6 runtime ratio
// between small and large jobs.
func ReadCoreCountTrace(r io.Reader) ([]*job.Job, error) {
	var jobs []*job.Job
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cores, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("trace: parsing core count %q: %w", line, err)
		}

		timeLimit := 120
		if cores > 1 {
			timeLimit = 720
		}
		jobs = append(jobs, job.NewJob(timeLimit, resource.New([]int{cores})))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: reading core count trace: %w", err)
	}
	return jobs, nil
}

// RandomRuntime builds a job.RuntimeFunc that perturbs a job's declared
// TimeLimit by Gaussian noise with the given standard deviation, clamped
// to never go below 0. The result may exceed TimeLimit, giving an EndTime
// past the job's Deadline. It takes effect only where it is passed to
// job.Job.Start directly; engine.System starts jobs with a nil
// RuntimeFunc and does not use it. Each call
// draws independently from rng, so the same *rand.Rand must not be shared
// across concurrent runs.
func RandomRuntime(rng *rand.Rand, stddev float64) job.RuntimeFunc {
	return func(j *job.Job) int {
		actual := j.TimeLimit + int(rng.NormFloat64()*stddev)
		if actual < 0 {
			return 0
		}
		return actual
	}
}
