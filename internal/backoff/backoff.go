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

// Package backoff computes the reconnect delay for ClientManager's
// resilient task (spec.md §4.5: "exponential backoff with jitter,
// capped"). The jitter sampler is adapted from the teacher's
// benchmark/io.Exponential distribution helper, which originally drove
// synthetic benchmark load patterns; here it spreads reconnect attempts
// from many clients instead of bunching them on every tick.
package backoff

import (
	"math/rand"
	"time"
)

// Exponential represents the exponential distribution
// (https://en.wikipedia.org/wiki/Exponential_distribution), used to sample
// jitter around a base delay.
type Exponential struct {
	Rate float64
	Src  rand.Source
}

// Rand returns a random sample drawn from the distribution.
func (e Exponential) Rand() float64 {
	var rnd float64
	if e.Src == nil {
		rnd = rand.ExpFloat64()
	} else {
		rnd = rand.New(e.Src).ExpFloat64()
	}
	return rnd / e.Rate
}

// Policy computes successive reconnect delays: base * 2^attempt, jittered
// by an Exponential(Rate: 1) sample and capped at Max.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultPolicy matches the teacher's own retry cadence
// (cluster.Options.RegisterInterval defaults to 3 seconds in nano.go's
// Listen), generalized into a capped exponential schedule instead of a
// fixed interval.
var DefaultPolicy = Policy{Base: 200 * time.Millisecond, Max: 30 * time.Second}

// Delay returns the delay to wait before reconnect attempt number attempt
// (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultPolicy.Base
	}
	max := p.Max
	if max <= 0 {
		max = DefaultPolicy.Max
	}

	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}

	jitter := Exponential{Rate: 1}.Rand()
	jittered := time.Duration(float64(d) * (0.5 + 0.5*jitter))
	if jittered > max {
		jittered = max
	}
	return jittered
}
