// Package payload maps logical values onto the single bulk string a key holds.
//
// Two layers are applied on the way to the wire:
//
//  1. Encode turns a value into text: strings stay as they are, numbers become
//     decimal text, maps and slices become JSON.
//  2. Wrap base64-encodes that text so arbitrary bytes never reach the line framing.
//
// The reverse path is Unwrap followed by Decode. No type tag is stored, so Decode
// sniffs the content:
//
//   - a payload starting with '{' that parses as a JSON object is a map
//   - the literal "[]" is an empty list
//   - a payload starting with '[' that parses as a JSON array is a list
//   - anything else, including unparsable JSON-looking text, is a string
//
// A string that happens to look like JSON therefore comes back as a collection.
// This is a known limitation kept for compatibility with existing stored data.
package payload
