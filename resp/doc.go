// Package resp implements the request/reply framing of the RESP key-value protocol.
//
// The package only serializes and parses. It opens no connections, keeps no
// state and knows nothing about how values are encoded inside bulk strings.
//
// # Requests
//
// Every request is an array of bulk strings, verb first:
//
//	cmd := resp.NewStringCommand(resp.CmdGet, "mykey")
//	err := resp.WriteCommand(w, cmd)
//
// produces
//
//	*2\r\n$3\r\nGET\r\n$5\r\nmykey\r\n
//
// Argument lengths are byte lengths, so arguments may hold any bytes.
//
// # Replies
//
// ReadReply decodes exactly one frame:
//
//	reply, err := resp.ReadReply(bufio.NewReader(conn))
//	if err != nil {
//	    if resp.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	if err := reply.Err(); err != nil {
//	    return err // -ERR ..., stream still usable
//	}
//
// Supported reply types: status (+), error (-), integer (:), bulk string ($,
// $-1 for null) and array (*, *-1 for null).
//
// # Error Handling
//
//   - ServerError: error reply from the server, connection can be REUSED
//   - ProtocolError: malformed or truncated frame, CLOSE connection
//   - ConnectionError: transport failure, connection already broken
package resp
