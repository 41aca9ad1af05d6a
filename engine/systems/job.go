package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief A unit of work for the job system. OnStart runs on a worker and
 * sends its result on the channel; OnComplete or OnFailure receives it.
 */
type JobTask struct {
	InputParams interface{}
	OnStart     func(params interface{}, resultChan chan<- interface{}) error
	OnComplete  func(result <-chan interface{})
	OnFailure   func(result <-chan interface{})
	// OnCompletionCallback always runs last, success or failure.
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	jq := make(chan JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				resultChan := make(chan interface{}, 1)
				// Run the job and handle potential errors
				err := job.OnStart(job.InputParams, resultChan)
				close(resultChan)
				if err != nil {
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(resultChan)
					}
				} else if job.OnComplete != nil {
					job.OnComplete(resultChan)
				}

				// Call the completion callback if set
				if job.OnCompletionCallback != nil {
					job.OnCompletionCallback()
				}
			}
		}()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run.
 */
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() {
		close(js.jobQueue)
	})
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution.
 * @param info The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll submits one job per input and blocks until all of them finished.
// Results are returned in input order; the first error wins.
func RunAll[In, Out any](js *JobSystem, inputs []In, fn func(In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(inputs))
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	wg.Add(len(inputs))
	for i, in := range inputs {
		i := i
		js.Submit(JobTask{
			InputParams: in,
			OnStart: func(params interface{}, resultChan chan<- interface{}) error {
				v, err := fn(params.(In))
				out[i] = v
				errs[i] = err
				return err
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
