// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Command cohortctl runs lifecycle queries and cohort operations directly
// against the Cohortlens stores.
package main

func main() {
	Execute()
}
