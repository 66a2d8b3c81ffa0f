package fuel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/fuelnet/src/common"
)

const (
	// RecordSeparator joins the fields of a ledger record.
	RecordSeparator = ";"

	// RecordFields is the number of fields in a well-formed record.
	RecordFields = 8
)

// Record serializes tx to the ledger line format, without trailing newline.
func (tx Transaction) Record() string {
	return strings.Join([]string{
		tx.ID,
		tx.ClientID,
		tx.DistributorID,
		tx.FuelType.String(),
		formatFloat(tx.Liters),
		formatFloat(tx.PricePerLiter),
		formatFloat(tx.Total),
		tx.CreatedAt.Format(time.RFC3339Nano),
	}, RecordSeparator)
}

// ParseRecord is the inverse of Record. A line with a field count other than
// RecordFields, or any unparsable field, is a Protocol error; an unknown fuel
// name is an InvalidFuelType error.
func ParseRecord(line string) (Transaction, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), RecordSeparator)
	if len(fields) != RecordFields {
		return Transaction{}, malformed(line, fmt.Errorf("expected %d fields, got %d", RecordFields, len(fields)))
	}

	id, err := uuid.Parse(fields[0])
	if err != nil {
		return Transaction{}, malformed(line, err)
	}

	fuelType, err := ParseType(fields[3])
	if err != nil {
		return Transaction{}, err
	}

	var nums [3]float64
	for i, f := range fields[4:7] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Transaction{}, malformed(line, err)
		}
		nums[i] = v
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[7])
	if err != nil {
		return Transaction{}, malformed(line, err)
	}

	return Transaction{
		ID:            id.String(),
		ClientID:      fields[1],
		DistributorID: fields[2],
		FuelType:      fuelType,
		Liters:        nums[0],
		PricePerLiter: nums[1],
		Total:         nums[2],
		CreatedAt:     createdAt,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func malformed(line string, cause error) error {
	return common.NewErr(common.Protocol, "parse record", line, cause)
}
