package dataset

// Table and column names follow the published Hawaii climate dataset.
// Row order without an explicit date ordering is rowid order, i.e. table order.
// Selected dates are cast to TEXT: the driver converts DATE-declared columns to
// time.Time, and the API serves the stored ISO string.
const (
	dateBoundsSQL = `SELECT CAST(MIN(date) AS TEXT), CAST(MAX(date) AS TEXT) FROM measurement`

	precipitationSinceSQL = `
SELECT CAST(date AS TEXT), prcp
FROM measurement
WHERE date >= ?
ORDER BY rowid`

	stationIDsSQL = `SELECT station FROM station ORDER BY rowid`

	// Ties on count resolve to whatever order SQLite's grouping produces.
	mostActiveStationSQL = `
SELECT station, COUNT(*) AS n
FROM measurement
GROUP BY station
ORDER BY n DESC
LIMIT 1`

	temperatureObservationsSinceSQL = `
SELECT CAST(date AS TEXT), tobs
FROM measurement
WHERE station = ? AND date >= ?
ORDER BY rowid`

	temperatureStatsInRangeSQL = `
SELECT CAST(date AS TEXT), MIN(tobs), MAX(tobs), AVG(tobs)
FROM measurement
WHERE date >= ? AND date <= ?
GROUP BY date
ORDER BY date`
)
