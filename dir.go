package pakbus

// FileEntry is one entry of a .DIR file directory listing (spec §4.6).
type FileEntry struct {
	FileName   string
	FileSize   uint32
	LastUpdate string
	Attribute  []uint8
}

// FileDirectory is the decoded .DIR file returned by FileUpload("\.DIR")
// (spec §3 data model, §4.6).
type FileDirectory struct {
	DirVersion uint8
	Files      []FileEntry
}

// ParseFileDirectory parses the raw contents of a .DIR file (spec §4.6): a
// version byte followed by file records, terminated by an empty filename.
func ParseFileDirectory(data []byte) (FileDirectory, error) {
	var fd FileDirectory
	values, n, err := DecodeValues([]DataType{Byte}, data, 0)
	if err != nil {
		return fd, err
	}
	fd.DirVersion = uint8(values[0].(uint64))
	offset := n

	for offset < len(data) {
		values, n, err = DecodeValues([]DataType{ASCIIZ}, data[offset:], 0)
		if err != nil {
			return fd, err
		}
		filename := SanitizeASCII([]byte(values[0].(string)))
		offset += n
		if filename == "" {
			break
		}

		entry := FileEntry{FileName: filename}
		values, n, err = DecodeValues([]DataType{UInt4, ASCIIZ}, data[offset:], 0)
		if err != nil {
			return fd, err
		}
		entry.FileSize = uint32(values[0].(uint64))
		entry.LastUpdate = values[1].(string)
		offset += n

		for i := 0; i < 12; i++ {
			values, n, err = DecodeValues([]DataType{Byte}, data[offset:], 0)
			if err != nil {
				return fd, err
			}
			offset += n
			attr := uint8(values[0].(uint64))
			if attr == 0 {
				break
			}
			entry.Attribute = append(entry.Attribute, attr)
		}
		fd.Files = append(fd.Files, entry)
	}
	return fd, nil
}
