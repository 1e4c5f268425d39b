// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diag

import (
	"sync"
	"testing"
)

func TestCollectorIsSafeForConcurrentAdd(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(ResolutionMiss("Lm;.f:()V", "callee %d not found", i))
		}(i)
	}
	wg.Wait()

	if len(c.All()) != 50 {
		t.Fatalf("expected 50 diagnostics, got %d", len(c.All()))
	}
	if c.HasFatal() {
		t.Fatalf("did not expect any fatal diagnostic")
	}
	if c.CountByKind()["ResolutionMiss"] != 50 {
		t.Fatalf("expected 50 ResolutionMiss entries, got %d", c.CountByKind()["ResolutionMiss"])
	}
}

func TestConfigErrorIsFatal(t *testing.T) {
	var c Collector
	c.Add(ConfigError("bad pattern %q", "("))
	if !c.HasFatal() {
		t.Fatalf("expected ConfigError to be fatal")
	}
}
