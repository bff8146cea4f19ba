// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workload

import (
	"github.com/intel/tlbbench/pkg/workload/mman"
)

// toggleExecutor flips a pre-faulted region between read-only and read-write.
type toggleExecutor struct{}

func (e *toggleExecutor) Operation() Operation {
	return Mprotect
}

func (e *toggleExecutor) Run(ctx *Context, ready func()) Result {
	return run(Mprotect, e, ctx, ready)
}

func (e *toggleExecutor) prepare(ctx *Context) *MappingFailure {
	return prepareRegion(ctx)
}

func (e *toggleExecutor) iterate(ctx *Context, i int) *MappingFailure {
	for _, prot := range []mman.Prot{mman.ProtRead, mman.ProtReadWrite} {
		if err := ctx.Mapper.Protect(ctx.region, prot); err != nil {
			return &MappingFailure{Call: mman.OpProtect, Iteration: i, Region: ctx.region, Err: err}
		}
		ctx.ops++
	}
	return nil
}

func (e *toggleExecutor) release(ctx *Context) {
	releaseRegion(ctx)
}

// remapExecutor unmaps a pre-faulted region and maps it again at the same address.
type remapExecutor struct{}

func (e *remapExecutor) Operation() Operation {
	return Munmap
}

func (e *remapExecutor) Run(ctx *Context, ready func()) Result {
	return run(Munmap, e, ctx, ready)
}

func (e *remapExecutor) prepare(ctx *Context) *MappingFailure {
	return prepareRegion(ctx)
}

func (e *remapExecutor) iterate(ctx *Context, i int) *MappingFailure {
	old := ctx.region
	if err := ctx.Mapper.Unmap(old); err != nil {
		return &MappingFailure{Call: mman.OpUnmap, Iteration: i, Region: old, Err: err}
	}
	ctx.mapped = false

	r, err := ctx.Mapper.Map(old.Addr, ctx.Size)
	if err != nil {
		return &MappingFailure{Call: mman.OpMap, Iteration: i, Region: old, Err: err}
	}
	if r.Addr != old.Addr {
		log.Debug("remap of %s moved to %s", old, r)
		ctx.shifts++
	}
	ctx.region, ctx.mapped = r, true
	ctx.ops++

	return nil
}

func (e *remapExecutor) release(ctx *Context) {
	releaseRegion(ctx)
}

// cycleExecutor maps, touches and unmaps a fresh region every iteration.
type cycleExecutor struct{}

func (e *cycleExecutor) Operation() Operation {
	return MmapFull
}

func (e *cycleExecutor) Run(ctx *Context, ready func()) Result {
	return run(MmapFull, e, ctx, ready)
}

func (e *cycleExecutor) prepare(*Context) *MappingFailure {
	return nil
}

func (e *cycleExecutor) iterate(ctx *Context, i int) *MappingFailure {
	r, err := ctx.Mapper.Map(0, ctx.Size)
	if err != nil {
		return &MappingFailure{Call: mman.OpMap, Iteration: i, Err: err}
	}
	ctx.region, ctx.mapped = r, true

	for _, offset := range []int{0, r.Size - 1} {
		if err := ctx.Mapper.Touch(r, offset, touchByte); err != nil {
			return &MappingFailure{Call: mman.OpTouch, Iteration: i, Region: r, Err: err}
		}
	}

	if err := ctx.Mapper.Unmap(r); err != nil {
		return &MappingFailure{Call: mman.OpUnmap, Iteration: i, Region: r, Err: err}
	}
	ctx.mapped = false
	ctx.ops++

	return nil
}

func (e *cycleExecutor) release(ctx *Context) {
	releaseRegion(ctx)
}
