// Package seed holds the historical readings loaded by the one-time migration.
package seed

import (
	"strings"

	"github.com/smallbiznis/meterbook/internal/backup"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/tariff"
)

// Historical is the reading log kept before the tool existed, in backup format.
const Historical = `14.10.23 - 223
15.11.23 - 917
16.12.23 - 1875
15.01.24 - 2951
16.02.24 - 4028
14.03.24 - 4860
15.04.24 - 5674
15.05.24 - 6153
14.06.24 - 6403
16.07.24 - 6428
14.08.24 - 6444
16.09.24 - 6576
15.10.24 - 7027
15.11.24 - 7839
14.12.24 - 8818
15.01.25 - 9861
15.02.25 - 10861
14.03.25 - 11696
14.04.25 - 12418
16.05.25 - 12792
15.06.25 - 12953
15.07.25 - 12977
16.08.25 - 13006
`

// HistoricalRecords prices the historical log under policy.
func HistoricalRecords(policy tariff.Policy, newID func() string) ([]domain.MeterRecord, error) {
	return backup.Parse(strings.NewReader(Historical), policy, newID)
}
