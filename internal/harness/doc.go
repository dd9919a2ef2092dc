// Package harness provides scenario-driven end-to-end tests for the
// reconciliation driver.
//
// A scenario fixes the wall clock, the upstream sources and the override
// dataset, runs one or more refresh cycles against a throwaway store,
// and asserts on the resulting series and cycle outcomes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	today: 2024-06-15
//	start_year: 1995
//	cycles: 2
//	historical:
//	  - { date: 2016-11-01, cpi: 170.0 }
//	feed_rates:
//	  - { date: 2017-01-01, annual: 25.0 }
//	overrides:
//	  version: "2024-06"
//	  entries:
//	    - { year: 2024, month: 5, monthly_rate: 4.2 }
//	expect:
//	  state: UP_TO_DATE
//	  records: 90
//	  last_cycle_writes: 0
//	  months:
//	    - { date: 2017-01-01, cpi: 178.0, source: live-feed }
//
// # Deterministic Testing
//
// Every run uses a fixed clock (testutil.FixedClock), canned sources
// (testutil.StaticFeed, testutil.StaticHistory), and an isolated SQLite
// database under t.TempDir, so results are reproducible.
package harness
