// Copyright (c) nano Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package scheduler

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/aclisp/nanoactor/internal/log"
)

// LocalScheduler schedules task to a customized goroutine
type LocalScheduler interface {
	Schedule(Task)
}

// Task is a function
type Task func()

// systemTimedSched is the library level timed-scheduler used for
// heartbeat ticks and directory-wait timeouts across every System in the
// process.
var (
	schedMu         sync.Mutex
	systemTimedSched *TimedSched = NewTimedSched(1)
)

func try(f Task) Task {
	return func() {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("handle task panic: %+v\n%s", err, debug.Stack())
			}
		}()
		f()
	}
}

// Close stops the scheduler and replaces it with a fresh instance, so a
// process that runs several Systems in sequence (as the test suite does)
// can keep scheduling work after a prior System shuts down.
func Close() {
	schedMu.Lock()
	defer schedMu.Unlock()
	systemTimedSched.Close()
	systemTimedSched = NewTimedSched(1)
	log.Print("scheduler stopped")
}

// Run add task to scheduler for immediate execution
func Run(task Task) {
	schedMu.Lock()
	ts := systemTimedSched
	schedMu.Unlock()
	ts.Run(try(task))
}

type repeatableTask struct {
	Task
	interval time.Duration
}

func (r repeatableTask) run() {
	now := time.Now()
	r.Task()
	put(r.run, now.Add(r.interval))
}

func put(f func(), deadline time.Time) {
	schedMu.Lock()
	ts := systemTimedSched
	schedMu.Unlock()
	ts.Put(f, deadline)
}

// After runs task once, after d has elapsed, on the package's shared
// timed-scheduler goroutine — the same one-shot-deadline primitive
// Directory.WaitFor uses for its connection-wait timeout instead of a
// one-off time.Timer per call.
func After(task Task, d time.Duration) {
	put(try(task), time.Now().Add(d))
}

// Repeat runs the task repeatly at every interval
func Repeat(task Task, interval time.Duration) {
	r := repeatableTask{try(task), interval}
	now := time.Now()
	put(r.run, now.Add(interval))
}
