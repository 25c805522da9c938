// Package validation checks user supplied names and payloads before they reach
// the filesystem.
//
// Item names become directory names and URL segments, so ItemName refuses
// empty names, "." and "..", control codes, the characters ?*/\%!@#$^&|<>[]:;
// and names ending in a dot. JSONSizeValidator bounds request bodies by size
// and nesting depth before decoding them.
package validation
