package codec

// cobsEncode stuffs data so the output contains no zero bytes. A code
// byte precedes each run of non-zero bytes; a run of 254 data bytes
// (code 0xFF) inserts an overhead byte with no implied zero.
func cobsEncode(data []byte) []byte {
	// worst case: one overhead byte per 254 data bytes, plus the first
	out := make([]byte, 1, len(data)+1+len(data)/254)

	codeIndex := 0
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIndex] = code
			code = 1
			codeIndex = len(out)
			out = append(out, 0)
			continue
		}

		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIndex] = code
			code = 1
			codeIndex = len(out)
			out = append(out, 0)
		}
	}

	out[codeIndex] = code
	return out
}

// cobsDecode reverses cobsEncode. Fails if the input contains a zero
// byte or a code byte points past the end of the input.
func cobsDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		code := data[i]
		if code == 0 {
			return nil, ErrBadCOBS
		}

		run := i + int(code)
		if run > len(data) {
			return nil, ErrBadCOBS
		}

		for j := i + 1; j < run; j++ {
			if data[j] == 0 {
				return nil, ErrBadCOBS
			}
			out = append(out, data[j])
		}

		i = run
		if code != 0xFF && i < len(data) {
			out = append(out, 0)
		}
	}

	return out, nil
}
