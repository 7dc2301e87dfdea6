package world

import "sort"

// TaskID identifies a deferred action so it can be cancelled
type TaskID uint64

type task struct {
	id   TaskID
	due  float64 // sim clock seconds
	gen  uint64  // round generation the task belongs to
	name string
	fn   func()
}

// scheduler holds deferred actions keyed on the world's sim clock. Tasks
// only run while their generation is still the live one, so a restart
// silently invalidates everything queued by the round it replaced.
type scheduler struct {
	nextID TaskID
	tasks  []task
}

const clockEpsilon = 1e-9

func (s *scheduler) add(due float64, gen uint64, name string, fn func()) TaskID {
	s.nextID++
	s.tasks = append(s.tasks, task{id: s.nextID, due: due, gen: gen, name: name, fn: fn})
	return s.nextID
}

func (s *scheduler) cancel(id TaskID) bool {
	for i, t := range s.tasks {
		if t.id == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// dropStale removes every task not tagged with gen and returns how many went
func (s *scheduler) dropStale(gen uint64) int {
	kept := s.tasks[:0]
	dropped := 0
	for _, t := range s.tasks {
		if t.gen == gen {
			kept = append(kept, t)
		} else {
			dropped++
		}
	}
	s.tasks = kept
	return dropped
}

// due pops every task whose time has come, oldest due first. Tasks added
// while the returned ones run are left for a later call.
func (s *scheduler) due(now float64) []task {
	var ready []task
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if now+clockEpsilon >= t.due {
			ready = append(ready, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.tasks = kept

	sort.SliceStable(ready, func(i, j int) bool { return ready[i].due < ready[j].due })
	return ready
}

func (s *scheduler) pending() int {
	return len(s.tasks)
}
