package device

// DeviceBuilderOption is a function that configures a software device during construction.
type DeviceBuilderOption func(*softwareDevice)

// WithWorkers is an option builder that sets the number of CPU workers executing texel work.
//
// Parameters:
//   - n: the worker count; values below 1 are ignored
//
// Returns:
//   - DeviceBuilderOption: a function that applies the worker count to a device
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *softwareDevice) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithBandRows is an option builder that sets how many rows of a face make up one unit of
// scheduled work.
//
// Parameters:
//   - rows: rows per band; values below 1 are ignored
//
// Returns:
//   - DeviceBuilderOption: a function that applies the band height to a device
func WithBandRows(rows int) DeviceBuilderOption {
	return func(d *softwareDevice) {
		if rows > 0 {
			d.bandRows = rows
		}
	}
}
