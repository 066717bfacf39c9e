package production

import (
	"container/heap"
	"time"
)

// jobHeap is a min-heap of running jobs ordered by EndTime.
type jobHeap []*Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].EndTime.Before(h[j].EndTime) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(*Job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// remove drops the job with id. Returns true if it was queued.
func (h *jobHeap) remove(id JobID) bool {
	for i, job := range *h {
		if job.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

// due pops every job whose EndTime is not after now, earliest first.
func (h *jobHeap) due(now time.Time) []*Job {
	var out []*Job
	for h.Len() > 0 && !now.Before((*h)[0].EndTime) {
		out = append(out, heap.Pop(h).(*Job))
	}
	return out
}
