package events

import (
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// Built-in release calendars, manually maintained. FOMC entries are
// decision days (the second meeting day); the monthly indicators are
// headline release dates. Dates are ISO yyyy-mm-dd. An overlay file
// can replace any list without a rebuild.
var builtinDates = map[domain.EventType][]string{
	domain.EventFOMC: {
		"2022-01-26", "2022-03-16", "2022-05-04", "2022-06-15",
		"2022-07-27", "2022-09-21", "2022-11-02", "2022-12-14",
		"2023-02-01", "2023-03-22", "2023-05-03", "2023-06-14",
		"2023-07-26", "2023-09-20", "2023-11-01", "2023-12-13",
		"2024-01-31", "2024-03-20", "2024-05-01", "2024-06-12",
		"2024-07-31", "2024-09-18", "2024-11-07", "2024-12-18",
		"2025-01-29", "2025-03-19", "2025-05-07", "2025-06-18",
		"2025-07-30", "2025-09-17", "2025-10-29", "2025-12-10",
		"2026-01-28", "2026-03-18", "2026-04-29", "2026-06-17",
		"2026-07-29", "2026-09-16", "2026-10-28", "2026-12-09",
	},
	domain.EventCPI: {
		"2022-01-12", "2022-02-10", "2022-03-10", "2022-04-12",
		"2022-05-11", "2022-06-10", "2022-07-13", "2022-08-10",
		"2022-09-13", "2022-10-13", "2022-11-10", "2022-12-13",
		"2023-01-12", "2023-02-14", "2023-03-14", "2023-04-12",
		"2023-05-10", "2023-06-13", "2023-07-12", "2023-08-10",
		"2023-09-13", "2023-10-12", "2023-11-14", "2023-12-12",
		"2024-01-11", "2024-02-13", "2024-03-12", "2024-04-10",
		"2024-05-15", "2024-06-12", "2024-07-11", "2024-08-14",
		"2024-09-11", "2024-10-10", "2024-11-13", "2024-12-11",
		"2025-01-15", "2025-02-12", "2025-03-12", "2025-04-10",
		"2025-05-13", "2025-06-11", "2025-07-15", "2025-08-12",
		"2025-09-11", "2025-10-15", "2025-11-13", "2025-12-10",
		"2026-01-13", "2026-02-11", "2026-03-11", "2026-04-14",
		"2026-05-12", "2026-06-10", "2026-07-14", "2026-08-12",
		"2026-09-15", "2026-10-13", "2026-11-10", "2026-12-10",
	},
	domain.EventNFP: {
		"2022-01-07", "2022-02-04", "2022-03-04", "2022-04-01",
		"2022-05-06", "2022-06-03", "2022-07-08", "2022-08-05",
		"2022-09-02", "2022-10-07", "2022-11-04", "2022-12-02",
		"2023-01-06", "2023-02-03", "2023-03-10", "2023-04-07",
		"2023-05-05", "2023-06-02", "2023-07-07", "2023-08-04",
		"2023-09-01", "2023-10-06", "2023-11-03", "2023-12-08",
		"2024-01-05", "2024-02-02", "2024-03-08", "2024-04-05",
		"2024-05-03", "2024-06-07", "2024-07-05", "2024-08-02",
		"2024-09-06", "2024-10-04", "2024-11-01", "2024-12-06",
		"2025-01-10", "2025-02-07", "2025-03-07", "2025-04-04",
		"2025-05-02", "2025-06-06", "2025-07-03", "2025-08-01",
		"2025-09-05", "2025-10-03", "2025-11-07", "2025-12-05",
		"2026-01-09", "2026-02-06", "2026-03-06", "2026-04-03",
		"2026-05-01", "2026-06-05", "2026-07-02", "2026-08-07",
		"2026-09-04", "2026-10-02", "2026-11-06", "2026-12-04",
	},
	domain.EventPPI: {
		"2022-01-13", "2022-02-15", "2022-03-15", "2022-04-13",
		"2022-05-12", "2022-06-14", "2022-07-14", "2022-08-11",
		"2022-09-14", "2022-10-12", "2022-11-15", "2022-12-09",
		"2023-01-18", "2023-02-16", "2023-03-15", "2023-04-13",
		"2023-05-11", "2023-06-14", "2023-07-13", "2023-08-11",
		"2023-09-14", "2023-10-11", "2023-11-15", "2023-12-13",
		"2024-01-12", "2024-02-16", "2024-03-14", "2024-04-11",
		"2024-05-14", "2024-06-13", "2024-07-12", "2024-08-13",
		"2024-09-12", "2024-10-11", "2024-11-14", "2024-12-12",
		"2025-01-14", "2025-02-13", "2025-03-13", "2025-04-11",
		"2025-05-15", "2025-06-12", "2025-07-16", "2025-08-14",
		"2025-09-10", "2025-10-16", "2025-11-14", "2025-12-11",
		"2026-01-14", "2026-02-12", "2026-03-12", "2026-04-15",
		"2026-05-13", "2026-06-11", "2026-07-15", "2026-08-13",
		"2026-09-16", "2026-10-14", "2026-11-12", "2026-12-11",
	},
	domain.EventRetailSales: {
		"2022-01-14", "2022-02-16", "2022-03-16", "2022-04-14",
		"2022-05-17", "2022-06-15", "2022-07-15", "2022-08-17",
		"2022-09-15", "2022-10-14", "2022-11-16", "2022-12-15",
		"2023-01-18", "2023-02-15", "2023-03-15", "2023-04-14",
		"2023-05-16", "2023-06-15", "2023-07-18", "2023-08-15",
		"2023-09-14", "2023-10-17", "2023-11-15", "2023-12-14",
		"2024-01-17", "2024-02-15", "2024-03-14", "2024-04-15",
		"2024-05-15", "2024-06-18", "2024-07-16", "2024-08-15",
		"2024-09-17", "2024-10-17", "2024-11-15", "2024-12-17",
		"2025-01-16", "2025-02-14", "2025-03-17", "2025-04-16",
		"2025-05-15", "2025-06-17", "2025-07-17", "2025-08-15",
		"2025-09-16", "2025-10-16", "2025-11-14", "2025-12-16",
		"2026-01-15", "2026-02-13", "2026-03-17", "2026-04-15",
		"2026-05-15", "2026-06-16", "2026-07-16", "2026-08-14",
		"2026-09-16", "2026-10-15", "2026-11-17", "2026-12-15",
	},
	domain.EventGDP: {
		"2022-01-27", "2022-02-24", "2022-03-30", "2022-04-28",
		"2022-05-26", "2022-06-29", "2022-07-28", "2022-08-25",
		"2022-09-29", "2022-10-27", "2022-11-30", "2022-12-22",
		"2023-01-26", "2023-02-23", "2023-03-30", "2023-04-27",
		"2023-05-25", "2023-06-29", "2023-07-27", "2023-08-30",
		"2023-09-28", "2023-10-26", "2023-11-29", "2023-12-21",
		"2024-01-25", "2024-02-28", "2024-03-28", "2024-04-25",
		"2024-05-30", "2024-06-27", "2024-07-25", "2024-08-29",
		"2024-09-26", "2024-10-30", "2024-11-27", "2024-12-19",
		"2025-01-30", "2025-02-27", "2025-03-27", "2025-04-30",
		"2025-05-29", "2025-06-26", "2025-07-30", "2025-08-28",
		"2025-09-25", "2025-10-30", "2025-11-26", "2025-12-19",
		"2026-01-29", "2026-02-26", "2026-03-26", "2026-04-29",
		"2026-05-28", "2026-06-25", "2026-07-30", "2026-08-27",
		"2026-09-30", "2026-10-29", "2026-11-25", "2026-12-22",
	},
	domain.EventPCE: {
		"2022-01-28", "2022-02-25", "2022-03-31", "2022-04-29",
		"2022-05-27", "2022-06-30", "2022-07-29", "2022-08-26",
		"2022-09-30", "2022-10-28", "2022-12-01", "2022-12-23",
		"2023-01-27", "2023-02-24", "2023-03-31", "2023-04-28",
		"2023-05-26", "2023-06-30", "2023-07-28", "2023-08-31",
		"2023-09-29", "2023-10-27", "2023-11-30", "2023-12-22",
		"2024-01-26", "2024-02-29", "2024-03-29", "2024-04-26",
		"2024-05-31", "2024-06-28", "2024-07-26", "2024-08-30",
		"2024-09-27", "2024-10-31", "2024-11-27", "2024-12-20",
		"2025-01-31", "2025-02-28", "2025-03-28", "2025-04-30",
		"2025-05-30", "2025-06-27", "2025-07-31", "2025-08-29",
		"2025-09-26", "2025-10-31", "2025-11-26", "2025-12-19",
		"2026-01-30", "2026-02-27", "2026-03-27", "2026-04-30",
		"2026-05-29", "2026-06-26", "2026-07-31", "2026-08-28",
		"2026-09-25", "2026-10-30", "2026-11-25", "2026-12-18",
	},
}
