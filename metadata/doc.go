// Package metadata fetches cloud instance metadata into a flat
// key→value map.
//
// The fetcher queries the EC2-style metadata endpoint for host, address,
// and placement facts used to populate the instance descriptor before
// registration. Individual path failures are tolerated: missing values
// simply stay out of the map.
package metadata
