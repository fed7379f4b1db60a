// Package glkimports implements the import binding thunks for the two
// module namespaces a wasm2glulx module is allowed to import from, "glk"
// and "glulx". For every function a module imports, Build emits a short
// Glulx function (a "thunk") that adapts Glulx's calling convention to the
// one internal/lower's call sites use, performs the argument/result
// conversions needed (argument reordering, buffer-pointer prefix patching,
// endian swaps for the Glk-area helpers), and dispatches to either the
// `glk` opcode (for "glk" imports) or a native Glulx opcode (for most
// "glulx" imports).
//
// The function tables in this file are plain data: the selector numbers
// and signatures are transcribed directly from the Glk 0.7.5 and Glulx
// 3.1.3 specifications, tabulated as flat Go data the same way any other
// ISA's opcode table gets tabulated.
package glkimports

// ArgKind classifies one parameter of a "glk" import for the purposes of
// the argument conversion buildGlkThunk performs.
type ArgKind byte

const (
	// ArgPlain is an ordinary i32 value passed through unchanged (byte
	// swapped like any other Glk argument isn't needed since Glk args are
	// never memory-resident; only buffer/string arguments need special
	// handling).
	ArgPlain ArgKind = iota
	// ArgGlkAreaIndex marks a buffer-ownership-transfer argument that is
	// already a Glk-area index: the thunk adds the Glk area's base address
	// to it rather than treating it as a WASM memory pointer.
	ArgGlkAreaIndex
	// ArgLatin1StringPtr marks a WASM-memory pointer to a NUL-terminated
	// Latin-1 string that Glk expects a one-byte 0xE0 prefix immediately
	// before.
	ArgLatin1StringPtr
	// ArgUniStringPtr marks a WASM-memory pointer to a NUL-terminated
	// 32-bit-per-character string that Glk expects a 4-byte 0xE2000000
	// prefix word immediately before.
	ArgUniStringPtr
)

// GlkFunc describes one function importable from module "glk": its
// Glk 0.7.5 selector number (the `glk <selector> argc dest` dispatch
// argument), and how each of its WASM-side i32 arguments should be
// interpreted.
type GlkFunc struct {
	Name      string // WASM import field name, i.e. the Glk name with "glk_" stripped.
	Selector  uint32
	Args      []ArgKind
	HasResult bool
}

func plain(n int) []ArgKind {
	a := make([]ArgKind, n)
	return a
}

// GlkFuncs enumerates the subset of the Glk 0.7.5 API this translator
// binds: the core windowing, stream, fileref, character I/O, style, event,
// and time/date calls a typical interactive-fiction runtime needs. Sound,
// image, and hyperlink calls are recognized too since a conforming
// interpreter may support them, but are no more special-cased than any
// other plain-i32-argument Glk call.
var GlkFuncs = buildGlkFuncs()

func buildGlkFuncs() []GlkFunc {
	fs := []GlkFunc{
		{Name: "exit", Selector: 0x0001},
		{Name: "tick", Selector: 0x0002},
		{Name: "gestalt", Selector: 0x0004, Args: plain(2), HasResult: true},
		{Name: "gestalt_ext", Selector: 0x0005, Args: []ArgKind{ArgPlain, ArgPlain, ArgGlkAreaIndex, ArgPlain}, HasResult: true},

		{Name: "window_iterate", Selector: 0x0020, Args: plain(2), HasResult: true},
		{Name: "window_get_rock", Selector: 0x0021, Args: plain(1), HasResult: true},
		{Name: "window_get_root", Selector: 0x0022, HasResult: true},
		{Name: "window_open", Selector: 0x0023, Args: plain(5), HasResult: true},
		{Name: "window_close", Selector: 0x0024, Args: plain(2)},
		{Name: "window_get_size", Selector: 0x0025, Args: plain(3)},
		{Name: "window_set_arrangement", Selector: 0x0026, Args: plain(3)},
		{Name: "window_get_arrangement", Selector: 0x0027, Args: plain(4)},
		{Name: "window_get_type", Selector: 0x0028, Args: plain(1), HasResult: true},
		{Name: "window_get_parent", Selector: 0x0029, Args: plain(1), HasResult: true},
		{Name: "window_clear", Selector: 0x002A, Args: plain(1)},
		{Name: "window_move_cursor", Selector: 0x002B, Args: plain(3)},
		{Name: "window_get_stream", Selector: 0x002C, Args: plain(1), HasResult: true},
		{Name: "window_set_echo_stream", Selector: 0x002D, Args: plain(2)},
		{Name: "window_get_echo_stream", Selector: 0x002E, Args: plain(1), HasResult: true},
		{Name: "set_window", Selector: 0x002F, Args: plain(1)},
		{Name: "window_get_sibling", Selector: 0x0030, Args: plain(1), HasResult: true},

		{Name: "stream_iterate", Selector: 0x0040, Args: plain(2), HasResult: true},
		{Name: "stream_get_rock", Selector: 0x0041, Args: plain(1), HasResult: true},
		{Name: "stream_open_file", Selector: 0x0042, Args: plain(3), HasResult: true},
		{Name: "stream_open_memory", Selector: 0x0043, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain, ArgPlain, ArgPlain}, HasResult: true},
		{Name: "stream_close", Selector: 0x0044, Args: plain(2)},
		{Name: "stream_set_position", Selector: 0x0045, Args: plain(3)},
		{Name: "stream_get_position", Selector: 0x0046, Args: plain(1), HasResult: true},
		{Name: "stream_set_current", Selector: 0x0047, Args: plain(1)},
		{Name: "stream_get_current", Selector: 0x0048, HasResult: true},

		{Name: "fileref_create_temp", Selector: 0x0060, Args: plain(2), HasResult: true},
		{Name: "fileref_create_by_name", Selector: 0x0061, Args: []ArgKind{ArgPlain, ArgLatin1StringPtr, ArgPlain}, HasResult: true},
		{Name: "fileref_create_by_prompt", Selector: 0x0062, Args: plain(3), HasResult: true},
		{Name: "fileref_create_from_fileref", Selector: 0x0063, Args: plain(3), HasResult: true},
		{Name: "fileref_destroy", Selector: 0x0064, Args: plain(1)},
		{Name: "fileref_iterate", Selector: 0x0065, Args: plain(2), HasResult: true},
		{Name: "fileref_get_rock", Selector: 0x0066, Args: plain(1), HasResult: true},
		{Name: "fileref_delete_file", Selector: 0x0067, Args: plain(1)},
		{Name: "fileref_does_file_exist", Selector: 0x0068, Args: plain(1), HasResult: true},

		{Name: "put_char", Selector: 0x0080, Args: plain(1)},
		{Name: "put_char_stream", Selector: 0x0081, Args: plain(2)},
		{Name: "put_string", Selector: 0x0082, Args: []ArgKind{ArgLatin1StringPtr}},
		{Name: "put_string_stream", Selector: 0x0083, Args: []ArgKind{ArgPlain, ArgLatin1StringPtr}},
		{Name: "put_buffer", Selector: 0x0084, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain}},
		{Name: "put_buffer_stream", Selector: 0x0085, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}},
		{Name: "set_style", Selector: 0x0086, Args: plain(1)},
		{Name: "set_style_stream", Selector: 0x0087, Args: plain(2)},

		{Name: "get_char_stream", Selector: 0x0090, Args: plain(1), HasResult: true},
		{Name: "get_line_stream", Selector: 0x0091, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}, HasResult: true},
		{Name: "get_buffer_stream", Selector: 0x0092, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}, HasResult: true},

		{Name: "char_to_lower", Selector: 0x00A0, Args: plain(1), HasResult: true},
		{Name: "char_to_upper", Selector: 0x00A1, Args: plain(1), HasResult: true},

		{Name: "stylehint_set", Selector: 0x00B0, Args: plain(4)},
		{Name: "stylehint_clear", Selector: 0x00B1, Args: plain(3)},
		{Name: "style_distinguish", Selector: 0x00B2, Args: plain(3), HasResult: true},
		{Name: "style_measure", Selector: 0x00B3, Args: plain(4), HasResult: true},

		{Name: "select", Selector: 0x00C0, Args: []ArgKind{ArgGlkAreaIndex}},
		{Name: "select_poll", Selector: 0x00C1, Args: []ArgKind{ArgGlkAreaIndex}},

		{Name: "request_line_event", Selector: 0x00D0, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain, ArgPlain}},
		{Name: "cancel_line_event", Selector: 0x00D1, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex}},
		{Name: "request_char_event", Selector: 0x00D2, Args: plain(1)},
		{Name: "cancel_char_event", Selector: 0x00D3, Args: plain(1)},
		{Name: "request_mouse_event", Selector: 0x00D4, Args: plain(1)},
		{Name: "cancel_mouse_event", Selector: 0x00D5, Args: plain(1)},
		{Name: "request_timer_events", Selector: 0x00D6, Args: plain(1)},

		{Name: "image_get_info", Selector: 0x00E0, Args: plain(3), HasResult: true},
		{Name: "image_draw", Selector: 0x00E1, Args: plain(4), HasResult: true},
		{Name: "image_draw_scaled", Selector: 0x00E2, Args: plain(6), HasResult: true},
		{Name: "window_flow_break", Selector: 0x00E8, Args: plain(1)},
		{Name: "window_erase_rect", Selector: 0x00E9, Args: plain(5)},
		{Name: "window_fill_rect", Selector: 0x00EA, Args: plain(6)},
		{Name: "window_set_background_color", Selector: 0x00EB, Args: plain(2)},

		{Name: "schannel_iterate", Selector: 0x00F0, Args: plain(2), HasResult: true},
		{Name: "schannel_get_rock", Selector: 0x00F1, Args: plain(1), HasResult: true},
		{Name: "schannel_create", Selector: 0x00F2, Args: plain(2), HasResult: true},
		{Name: "schannel_destroy", Selector: 0x00F3, Args: plain(1)},
		{Name: "schannel_play", Selector: 0x00F8, Args: plain(2), HasResult: true},
		{Name: "schannel_play_ext", Selector: 0x00FA, Args: plain(4), HasResult: true},
		{Name: "schannel_stop", Selector: 0x00FB, Args: plain(1)},
		{Name: "schannel_set_volume", Selector: 0x00FC, Args: plain(2)},
		{Name: "sound_load_hint", Selector: 0x00FD, Args: plain(2)},

		{Name: "set_hyperlink", Selector: 0x0100, Args: plain(1)},
		{Name: "set_hyperlink_stream", Selector: 0x0101, Args: plain(2)},
		{Name: "request_hyperlink_event", Selector: 0x0102, Args: plain(1)},
		{Name: "cancel_hyperlink_event", Selector: 0x0103, Args: plain(1)},

		{Name: "buffer_to_lower_case_uni", Selector: 0x0120, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain, ArgPlain}, HasResult: true},
		{Name: "buffer_to_upper_case_uni", Selector: 0x0121, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain, ArgPlain}, HasResult: true},
		{Name: "buffer_to_title_case_uni", Selector: 0x0122, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain, ArgPlain, ArgPlain}, HasResult: true},

		{Name: "put_char_uni", Selector: 0x0128, Args: plain(1)},
		{Name: "put_string_uni", Selector: 0x0129, Args: []ArgKind{ArgUniStringPtr}},
		{Name: "put_buffer_uni", Selector: 0x012A, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain}},
		{Name: "put_char_stream_uni", Selector: 0x012B, Args: plain(2)},
		{Name: "put_string_stream_uni", Selector: 0x012C, Args: []ArgKind{ArgPlain, ArgUniStringPtr}},
		{Name: "put_buffer_stream_uni", Selector: 0x012D, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}},

		{Name: "get_char_stream_uni", Selector: 0x0130, Args: plain(1), HasResult: true},
		{Name: "get_buffer_stream_uni", Selector: 0x0131, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}, HasResult: true},
		{Name: "get_line_stream_uni", Selector: 0x0132, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}, HasResult: true},

		{Name: "stream_open_file_uni", Selector: 0x0138, Args: plain(3), HasResult: true},
		{Name: "stream_open_memory_uni", Selector: 0x0139, Args: []ArgKind{ArgGlkAreaIndex, ArgPlain, ArgPlain, ArgPlain}, HasResult: true},

		{Name: "request_char_event_uni", Selector: 0x0140, Args: plain(1)},
		{Name: "request_line_event_uni", Selector: 0x0141, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain, ArgPlain}},

		{Name: "set_echo_line_event", Selector: 0x0150, Args: plain(2)},
		{Name: "set_terminators_line_event", Selector: 0x0151, Args: []ArgKind{ArgPlain, ArgGlkAreaIndex, ArgPlain}},

		{Name: "current_time", Selector: 0x0160, Args: []ArgKind{ArgGlkAreaIndex}},
		{Name: "current_simple_time", Selector: 0x0161, Args: plain(1), HasResult: true},
		{Name: "time_to_date_utc", Selector: 0x0168, Args: []ArgKind{ArgGlkAreaIndex, ArgGlkAreaIndex}},
		{Name: "time_to_date_local", Selector: 0x0169, Args: []ArgKind{ArgGlkAreaIndex, ArgGlkAreaIndex}},
		{Name: "date_to_time_utc", Selector: 0x016A, Args: []ArgKind{ArgGlkAreaIndex, ArgGlkAreaIndex}},
		{Name: "date_to_time_local", Selector: 0x016B, Args: []ArgKind{ArgGlkAreaIndex, ArgGlkAreaIndex}},
		{Name: "simple_time_to_date_utc", Selector: 0x016C, Args: plain(3), HasResult: true},
		{Name: "simple_time_to_date_local", Selector: 0x016D, Args: plain(2), HasResult: true},
		{Name: "simple_date_to_time_utc", Selector: 0x016E, Args: []ArgKind{ArgGlkAreaIndex}, HasResult: true},
		{Name: "simple_date_to_time_local", Selector: 0x016F, Args: []ArgKind{ArgGlkAreaIndex}, HasResult: true},
	}
	return fs
}

// ByName indexes GlkFuncs by field name for Build's import lookup.
func ByName(name string) (GlkFunc, bool) {
	for _, f := range GlkFuncs {
		if f.Name == name {
			return f, true
		}
	}
	return GlkFunc{}, false
}
