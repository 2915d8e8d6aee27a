package cron

import (
	"context"
	"fmt"
)

// Job is a unit of scheduled work run inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by unique name in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with jobs. Nil jobs are ignored;
// a duplicate name is an error.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if _, exists := r.Find(job.Name()); exists {
		return fmt.Errorf("cron job %q already registered", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Find looks a job up by name.
func (r *Registry) Find(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
