package transform

// packRGBX compacts n RGBX pixels to RGB in place, leaving the first
// 3n bytes of line defined. The X byte of every pixel is dropped.
func packRGBX(line []byte, n int) {
	s, d := 4, 3 // pixel 0 is already in place
	for i := 1; i < n; i++ {
		line[d+0] = line[s+0]
		line[d+1] = line[s+1]
		line[d+2] = line[s+2]
		s += 4
		d += 3
	}
}
