/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package anim plays time based tweens on a ticker and signals completion on a channel.
package anim

import (
	"context"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Easing is a gween easing function, e.g. ease.OutExpo or ease.InOutQuad.
type Easing = ease.TweenFunc

// Lerp interpolates between from and to.
func Lerp(from, to, p float64) float64 { return from + (to-from)*p }

// DefaultInterval is the frame interval used when Spec.Interval is zero.
const DefaultInterval = 16 * time.Millisecond

// Spec describes one animation.
type Spec struct {
	Duration time.Duration
	Easing   Easing
	// Frame receives eased progress. The last call always has p == 1 unless the
	// animation is cancelled.
	Frame    func(p float64)
	Interval time.Duration
}

// Animation is a running tween.
type Animation struct {
	done chan struct{}
	err  error
}

// Finished is closed when the animation completes or is cancelled.
func (a *Animation) Finished() <-chan struct{} { return a.done }

// Err reports why the animation stopped early. Only valid after Finished is closed.
func (a *Animation) Err() error { return a.err }

// Wait blocks until the animation finishes or ctx is done.
func (a *Animation) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start plays s in its own goroutine.
func Start(ctx context.Context, s Spec) *Animation {
	a := &Animation{done: make(chan struct{})}
	if s.Easing == nil {
		s.Easing = ease.Linear
	}
	if s.Frame == nil {
		s.Frame = func(float64) {}
	}
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.Duration <= 0 {
		s.Frame(1)
		close(a.done)
		return a
	}
	go a.run(ctx, s)
	return a
}

func (a *Animation) run(ctx context.Context, s Spec) {
	defer close(a.done)
	tw := gween.New(0, 1, float32(s.Duration.Seconds()), s.Easing)
	v, _ := tw.Set(0)
	s.Frame(float64(v))
	last := time.Now()
	tk := time.NewTicker(s.Interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			a.err = ctx.Err()
			return
		case now := <-tk.C:
			v, done := tw.Update(float32(now.Sub(last).Seconds()))
			last = now
			if done {
				s.Frame(1)
				return
			}
			s.Frame(float64(v))
		}
	}
}

// Delay finishes after d, or early when ctx is done.
func Delay(ctx context.Context, d time.Duration) *Animation {
	a := &Animation{done: make(chan struct{})}
	if d <= 0 {
		close(a.done)
		return a
	}
	go func() {
		defer close(a.done)
		tm := time.NewTimer(d)
		defer tm.Stop()
		select {
		case <-tm.C:
		case <-ctx.Done():
			a.err = ctx.Err()
		}
	}()
	return a
}

// All finishes when every animation has finished. Its error is the first non-nil error.
func All(as ...*Animation) *Animation {
	out := &Animation{done: make(chan struct{})}
	go func() {
		defer close(out.done)
		for _, a := range as {
			<-a.done
			if out.err == nil {
				out.err = a.err
			}
		}
	}()
	return out
}
