// mcctl administers a Mission Control data directory: key generation,
// seeding, quota maintenance and read-only reports.
package main

func main() {
	Execute()
}
