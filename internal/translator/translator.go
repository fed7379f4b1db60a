// Package translator wires together pipeline stages into the single Build
// entry point the root wasm2glulx package calls: plan the image layout,
// emit the runtime-library and Glk/Glulx import thunks, lower every
// module-defined function concurrently, emit the initialization prelude,
// and hand the whole item stream to the assembler.
package translator

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/glulxfic/wasm2glulx/internal/glkimports"
	"github.com/glulxfic/wasm2glulx/internal/glulxasm"
	"github.com/glulxfic/wasm2glulx/internal/layout"
	"github.com/glulxfic/wasm2glulx/internal/lower"
	"github.com/glulxfic/wasm2glulx/internal/peephole"
	"github.com/glulxfic/wasm2glulx/internal/prelude"
	"github.com/glulxfic/wasm2glulx/internal/runtimelib"
	"github.com/glulxfic/wasm2glulx/internal/wasmir"
)

// memoryAlign is the byte boundary WASM linear memory is placed on within
// the image, so MemoryBase is a multiple of 256.
const memoryAlign = 256

// Build translates m into a Glulx story file image.
func Build(m *wasmir.Module, opts layout.Options) ([]byte, error) {
	if err := checkImports(m); err != nil {
		return nil, err
	}

	lay := layout.Plan(m, opts)
	rtItems, refs := runtimelib.Build(lay.MemoryBase)

	importItems, importLabels, err := glkimports.Build(m, lay)
	if err != nil {
		return nil, err
	}

	imported := uint32(m.ImportedFuncCount())
	funcRefs := make(lower.FuncLabels, imported+uint32(len(m.Functions)))
	for idx, lbl := range importLabels {
		funcRefs[idx] = lbl
	}
	for i := range m.Functions {
		name := m.Functions[i].Name
		if name == "" {
			name = fmt.Sprintf("%d", imported+uint32(i))
		}
		funcRefs[imported+uint32(i)] = glulxasm.NewLabel("fn_" + name)
	}

	elemBases := make([]*glulxasm.Label, len(m.Elements))
	elemDropFlags := make([]*glulxasm.Label, len(m.Elements))
	for i := range m.Elements {
		elemBases[i] = glulxasm.NewLabel(fmt.Sprintf("elem_seg_%d", i))
		elemDropFlags[i] = glulxasm.NewLabel(fmt.Sprintf("elem_drop_%d", i))
	}
	dataBases := make([]*glulxasm.Label, len(m.Data))
	dataDropFlags := make([]*glulxasm.Label, len(m.Data))
	for i := range m.Data {
		dataBases[i] = glulxasm.NewLabel(fmt.Sprintf("data_seg_%d", i))
		dataDropFlags[i] = glulxasm.NewLabel(fmt.Sprintf("data_drop_%d", i))
	}

	lx := &lower.Lowerer{
		Module:               m,
		Layout:               lay,
		Runtime:              refs,
		FuncRefs:             funcRefs,
		ElemSegmentBases:     elemBases,
		DataSegmentBases:     dataBases,
		DataSegmentDropFlags: dataDropFlags,
		ElemSegmentDropFlags: elemDropFlags,
	}

	fnItems, err := lowerFunctions(lx, imported)
	if err != nil {
		return nil, err
	}

	segItems := emitSegmentBlobs(m, funcRefs, elemBases, dataBases)

	dataBlobs := make(map[int]*glulxasm.Label, len(dataBases))
	for i, lbl := range dataBases {
		dataBlobs[i] = lbl
	}
	funcRefMap := make(map[uint32]*glulxasm.Label, len(funcRefs))
	for i, lbl := range funcRefs {
		funcRefMap[uint32(i)] = lbl
	}

	preludeEntry, preludeItems, err := prelude.Build(m, lay, funcRefMap, dataBlobs)
	if err != nil {
		return nil, err
	}

	asm := glulxasm.NewAssembler()
	asm.Emit(rtItems...)
	asm.Emit(importItems...)
	asm.Emit(fnItems...)
	asm.Emit(segItems...)
	asm.Emit(preludeItems...)

	asm.Emit(&glulxasm.Align{Boundary: 4})
	asm.Emit(&glulxasm.LabelDef{L: lay.RAMStart})
	asm.Emit(ramRegion(m, lay, refs, elemDropFlags, dataDropFlags)...)

	h := glulxasm.Header{
		StackSize: opts.StackSize,
		StartFunc: preludeEntry,
		RAMStart:  lay.RAMStart,
		ExtStart:  lay.ExtStart,
		EndMem:    lay.EndMem,
	}
	return asm.Assemble(h)
}

// checkImports rejects anything this translator cannot bind: it only
// recognizes function imports from the "glk" and "glulx" modules, so an
// imported table/memory/global is reported the same way an unknown import
// module name is, rather than silently ignored.
func checkImports(m *wasmir.Module) error {
	for _, im := range m.Imports {
		if im.Type != wasmir.ExternTypeFunc {
			return wasmir.NewUnsupportedFeatureError("import",
				fmt.Sprintf("%s.%s: only function imports are supported (no imported tables, memories, or globals)", im.Module, im.Field))
		}
	}
	return nil
}

// lowerFunctions runs internal/lower and internal/peephole over every
// module-defined function concurrently, capped at GOMAXPROCS workers.
func lowerFunctions(lx *lower.Lowerer, imported uint32) ([]glulxasm.Item, error) {
	n := len(lx.Module.Functions)
	results := make([][]glulxasm.Item, n)
	errs := make([]error, n)

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var next int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				i := next
				next++
				mu.Unlock()
				if i >= n {
					return
				}
				fn := &lx.Module.Functions[i]
				funcIdx := imported + uint32(i)
				items, err := lx.Function(funcIdx, fn, lx.FuncRefs[funcIdx])
				if err != nil {
					errs[i] = err
					continue
				}
				results[i] = peephole.Run(items)
			}
		}()
	}
	wg.Wait()

	var items []glulxasm.Item
	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		items = append(items, results[i]...)
	}
	return items, nil
}

func beWord(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// emitSegmentBlobs materializes every data and element segment as a
// ROM-resident constant, regardless of active/passive mode: active segments
// are consumed once by internal/prelude at startup, and any segment
// (active or passive) remains addressable by memory.init/table.init for the
// module's lifetime until dropped.
func emitSegmentBlobs(m *wasmir.Module, funcRefs lower.FuncLabels, elemBases, dataBases []*glulxasm.Label) []glulxasm.Item {
	var items []glulxasm.Item
	for i, d := range m.Data {
		items = append(items, &glulxasm.LabelDef{L: dataBases[i]})
		if len(d.Bytes) > 0 {
			items = append(items, &glulxasm.Data{Bytes: d.Bytes})
		}
	}
	for i, e := range m.Elements {
		items = append(items, &glulxasm.LabelDef{L: elemBases[i]})
		for _, fidx := range e.FuncIndices {
			if e.ElemType == wasmir.ValueTypeFuncref {
				ft := m.Types[m.FuncTypeIndex(fidx)]
				items = append(items, &glulxasm.Data{Bytes: beWord(ft.Fingerprint())})
				items = append(items, &glulxasm.DataWord{Value: glulxasm.LabelConstOperand(funcRefs[fidx], 0)})
			} else {
				// externref element segments have no representation in
				// wasmir.Element beyond FuncIndices (upstream parsers only
				// populate it for funcref vec(funcidx) segments); treat each
				// entry as a null externref token, matching ref.null's
				// all-zero encoding.
				items = append(items, &glulxasm.Data{Bytes: beWord(0)})
			}
		}
	}
	return items
}

// ramRegion lays out every RAM-resident region after lay.RAMStart. None of
// it is stored in the file: per the header fields, a Glulx interpreter
// zero-initializes everything between EXTSTART and ENDMEM, and
// internal/prelude is responsible for writing in the module's actual
// initial state once the image starts running. WASM linear memory is
// placed last, since it is the one region memory.grow extends past ENDMEM
// via setmemsize (internal/runtimelib's buildMemoryGrow).
func ramRegion(m *wasmir.Module, lay *layout.Layout, refs *runtimelib.Refs, elemDropFlags, dataDropFlags []*glulxasm.Label) []glulxasm.Item {
	var items []glulxasm.Item
	zero := func(lbl *glulxasm.Label, n uint32) {
		items = append(items, &glulxasm.LabelDef{L: lbl}, &glulxasm.ZeroFill{N: int(n)})
	}

	zero(lay.GlobalsBase, lay.GlobalsSize(m))
	for i, base := range lay.TableBases {
		zero(base, lay.TableSize(i))
	}
	for _, cell := range lay.TableSizeCells {
		zero(cell, 4)
	}
	zero(lay.GlkAreaBase, lay.Opts.GlkAreaSize)
	zero(refs.HiResult, 12)
	for _, f := range dataDropFlags {
		zero(f, 1)
	}
	for _, f := range elemDropFlags {
		zero(f, 1)
	}

	items = append(items, &glulxasm.Align{Boundary: memoryAlign})
	items = append(items, &glulxasm.LabelDef{L: lay.MemoryBase}, &glulxasm.ZeroFill{N: int(lay.MemoryInitialSize)})
	items = append(items, &glulxasm.LabelDef{L: lay.EndMem})
	return items
}
