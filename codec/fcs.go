package codec

// fcs computes the 802.15.4 frame check sequence (CRC-16, polynomial 0x1021
// processed LSB first, zero initial value).
func fcs(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
