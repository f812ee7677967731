package resp

// Kind identifies the type of a reply frame by its leading tag byte.
type Kind byte

// Protocol delimiters
const (
	// CRLF terminates every line and every bulk string body.
	CRLF = "\r\n"
)

// Reply type tags (first byte of every reply line).
const (
	KindStatus  Kind = '+' // +<text>\r\n
	KindError   Kind = '-' // -<text>\r\n
	KindInteger Kind = ':' // :<int64>\r\n
	KindBulk    Kind = '$' // $<len>\r\n<bytes>\r\n, $-1\r\n for null
	KindArray   Kind = '*' // *<len>\r\n<elements...>, *-1\r\n for null
)

// String returns a readable name for the reply kind.
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "unknown(" + string(rune(k)) + ")"
	}
}

// Command verbs emitted by the client. No other verb is ever written.
const (
	// CmdKeys enumerates keys matching a pattern.
	//
	// Wire format: *2 KEYS <pattern>
	// Reply: array of bulk strings (may be empty).
	CmdKeys = "KEYS"

	// CmdExists checks whether a key exists.
	//
	// Wire format: *2 EXISTS <key>
	// Reply: integer, 1 when the key exists.
	CmdExists = "EXISTS"

	// CmdGet fetches the value stored at key.
	//
	// Wire format: *2 GET <key>
	// Reply: bulk string, null when the key does not exist.
	CmdGet = "GET"

	// CmdSet stores a value at key.
	//
	// Wire format: *3 SET <key> <value>
	// Reply: status OK.
	CmdSet = "SET"

	// CmdDel removes a key.
	//
	// Wire format: *2 DEL <key>
	// Reply: integer, number of keys removed.
	CmdDel = "DEL"
)

// StatusOK is the status text returned by a successful SET.
const StatusOK = "OK"

// AllKeysPattern matches every key for CmdKeys.
const AllKeysPattern = "*"

// Limits
const (
	// ChunkSize is the largest slice of a bulk body requested from the reader in one call.
	ChunkSize = 1024

	// MaxBulkLength is the largest declared bulk length accepted from a server (512 MiB).
	MaxBulkLength = 512 * 1024 * 1024

	// MaxArrayLength is the largest declared array length accepted from a server.
	MaxArrayLength = 1 << 24
)
