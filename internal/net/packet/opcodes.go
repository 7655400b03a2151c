package packet

// ProtocolVersion is sent in S_HELLO and must be echoed by C_HELLO.
const ProtocolVersion = 1

// Client opcodes.
const (
	C_HELLO byte = 0x01 // [D version]
	C_DUMP  byte = 0x02 // [S path]
	C_NAMES byte = 0x03 // [S path]
	C_SET   byte = 0x04 // [S path][S attribute][H index][S text]
)

// Server opcodes.
const (
	S_HELLO byte = 0x80 // [D version]
	S_DUMP  byte = 0x81 // [C truncated][S path][S dump]
	S_NAMES byte = 0x82 // [S path][H count][S name]...
	S_OK    byte = 0x83 // [C request opcode]
	S_ERROR byte = 0x84 // [C request opcode][S message]
)
