package asmserver

import (
	"bytes"
	"fmt"

	"github.com/crossasm/asmx/backend/mos6502"
	"github.com/crossasm/asmx/backend/z80"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/listing"
	"github.com/crossasm/asmx/internal/objfile"
	"github.com/crossasm/asmx/internal/pass"
)

// newRegistry builds the CPU registry every assembly request shares,
// wiring in every reference back end this module ships.
func newRegistry() *cpu.Registry {
	reg := cpu.NewRegistry()
	reg.Register(mos6502.Def())
	reg.Register(z80.Def())
	return reg
}

// fileSource serves only the in-memory main file; POST /assemble carries
// no INCLUDE/INCBIN filesystem, matching the teacher's api/server.go
// stateless-request model.
type fileSource struct{}

func (fileSource) ReadFile(name string) ([]byte, error) {
	return nil, fmt.Errorf("INCLUDE/INCBIN not available over the assemble endpoint: %q", name)
}

// seekBuf adapts a bytes.Buffer into an io.WriteSeeker for objfile.Binary,
// which writes at arbitrary offsets rather than strictly appending.
type seekBuf struct {
	data []byte
	pos  int64
}

func (s *seekBuf) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	s.pos = offset
	return s.pos, nil
}

// newObjectSink builds the object writer for format, writing into buf.
func newObjectSink(format string, buf *seekBuf, name string) (pass.ObjectSink, error) {
	switch format {
	case "", "bin":
		return objfile.NewBinary(buf, 0, 0, false), nil
	case "ihex":
		return objfile.NewIntelHex(buf), nil
	case "srec":
		return objfile.NewSRecord(buf, objfile.SRec32), nil
	case "trsdos":
		return objfile.NewTRSDOS(buf, name, 256), nil
	case "trscassette":
		return objfile.NewTRSCassette(buf, name, 256), nil
	default:
		return nil, fmt.Errorf("unknown object format %q", format)
	}
}

// Assemble runs one complete two-pass assembly of req.Source and reports
// the object bytes, an optional listing, every diagnostic raised, and the
// final symbol table, mirroring the teacher's handleLoadProgram but
// stateless: no session, no VM, nothing retained once the call returns.
func Assemble(req AssembleRequest) (*AssembleResponse, error) {
	filename := req.Filename
	if filename == "" {
		filename = "input.asm"
	}

	var objBuf seekBuf
	sink, err := newObjectSink(req.Format, &objBuf, filename)
	if err != nil {
		return nil, err
	}

	var listBuf bytes.Buffer
	var listSink pass.ListingSink
	if req.Listing {
		listSink = listing.New(&listBuf, listing.Addr16)
	}

	reg := newRegistry()
	if req.CPU != "" {
		reg.SetDefault(req.CPU)
	}

	a := pass.New(reg, fileSource{}, sink, listSink)
	runErr := a.Run(filename, req.Source)

	resp := &AssembleResponse{
		Success:    runErr == nil && !a.Diags.HasErrors(),
		ErrorCount: a.Diags.ErrorCount(),
	}
	for _, d := range a.Diags.All() {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
			Pos:      d.Pos.String(),
			Severity: d.Sev.String(),
			Message:  d.Message,
		})
	}
	if resp.Success {
		resp.Object = objBuf.data
	}
	if req.Listing {
		resp.Listing = listBuf.String()
	}

	resp.Symbols = make(map[string]int64)
	for _, sym := range a.Symtab.Sorted() {
		if sym.Defined {
			resp.Symbols[sym.Name] = int64(sym.Value)
		}
	}

	if runErr != nil {
		return resp, runErr
	}
	return resp, nil
}
