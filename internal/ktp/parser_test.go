package ktp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t\n"} {
		got := Parse(raw)
		assert.Len(t, got, len(Keys))
		for _, k := range Keys {
			assert.Equal(t, "", got[k], "key %s for input %q", k, raw)
		}
	}
}

func TestParseFullCard(t *testing.T) {
	raw := `PROVINSI JAWA BARAT
KABUPATEN BANDUNG
NIK : 3204150607890001
Nama : SITI AMINAH
Tempat : BANDUNG
Tgl Lahir 06-07-1989
Jenis Kelamin : PEREMPUAN
Alamat : JL MERDEKA NO 12
RT/RW : 003/004`

	got := Parse(raw)
	assert.Equal(t, "3204150607890001", got[FieldNIK])
	assert.Equal(t, "SITI AMINAH", got[FieldName])
	assert.Equal(t, "BANDUNG", got[FieldBirthPlace])
	assert.Contains(t, got[FieldBirthDate], "06-07-1989")
	assert.Equal(t, "JL MERDEKA NO 12", got[FieldAddress])
	assert.Equal(t, "F", got[FieldGender])
}

func TestParsePartialCard(t *testing.T) {
	raw := "NIK 1234567890123456\nNama: BUDI SANTOSO\nAlamat Jl. Mawar No. 5"

	got := Parse(raw)
	assert.Equal(t, "1234567890123456", got[FieldNIK])
	assert.Equal(t, "BUDI SANTOSO", got[FieldName])
	assert.Equal(t, "Jl. Mawar No. 5", got[FieldAddress])
	assert.Equal(t, "", got[FieldBirthPlace])
	assert.Equal(t, "", got[FieldGender])
}

func TestParseNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare label with value on next line",
			raw:  "Nama\nAGUS SETIAWAN\nAlamat: JL ANGGREK",
			want: "AGUS SETIAWAN",
		},
		{
			name: "no label falls back to first long text line",
			raw:  "REPUBLIK INDONESIA\n123\nJOKO WIDODO",
			want: "REPUBLIK INDONESIA",
		},
		{
			name: "digit-leading lines skipped by fallback",
			raw:  "12 KARTU\nSUPARMAN HADI",
			want: "SUPARMAN HADI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw)[FieldName])
		})
	}
}

func TestParseBirthDateLastMatchWins(t *testing.T) {
	raw := "Nama: RINA\nberlaku 01-01-2020\ndikeluarkan 05-05-2021"
	got := Parse(raw)
	assert.Equal(t, "dikeluarkan 05-05-2021", got[FieldBirthDate])
}

func TestParseBirthLineStopsScan(t *testing.T) {
	// On a combined label line the split yields the label token first, so it
	// fills the place slot. Once the labeled line yields a date the scan
	// stops and the later direct-pattern line cannot overwrite it.
	raw := "Tempat/Tgl Lahir: JAKARTA, 17-08-1990\nberlaku 01-01-2030"
	got := Parse(raw)
	assert.Equal(t, "Tempat", got[FieldBirthPlace])
	assert.Equal(t, "17-08-1990", got[FieldBirthDate])
}

func TestParseAddressRegionMarkerFallback(t *testing.T) {
	raw := "Nama: DEWI\nKel/Desa Sukamaju Kec. Cibiru"
	got := Parse(raw)
	assert.Equal(t, "Kel/Desa Sukamaju Kec. Cibiru", got[FieldAddress])
}

func TestParseGenderStopsAtFirstLabeledLine(t *testing.T) {
	got := Parse("Jenis Kelamin : LAKI-LAKI\nstatus: perempuan")
	assert.Equal(t, "M", got[FieldGender])

	// Label present but no recognizable token: field stays empty.
	got = Parse("Jenis Kelamin : ???")
	assert.Equal(t, "", got[FieldGender])
}
