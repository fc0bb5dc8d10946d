package codec

import "testing"

func benchmarkRecordEncode(b *testing.B, c Codec) {
	b.Helper()
	b.ReportAllocs()

	r := sampleRecord()
	warm, err := EncodeRecord(c, r)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := EncodeRecord(c, r)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkRecordDecode(b *testing.B, c Codec) {
	b.Helper()
	b.ReportAllocs()

	data, err := EncodeRecord(c, sampleRecord())
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for b.Loop() {
		if _, err := DecodeRecord(c, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRecordEncode_JSON(b *testing.B)   { benchmarkRecordEncode(b, JSON{}) }
func BenchmarkRecordEncode_GoJSON(b *testing.B) { benchmarkRecordEncode(b, GoJSON{}) }
func BenchmarkRecordDecode_JSON(b *testing.B)   { benchmarkRecordDecode(b, JSON{}) }
func BenchmarkRecordDecode_GoJSON(b *testing.B) { benchmarkRecordDecode(b, GoJSON{}) }
