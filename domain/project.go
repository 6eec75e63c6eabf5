package domain

// Project groups tasks under a display name and color tag. TaskCount is a
// cached server aggregate; zero may mean "not yet counted".
type Project struct {
	Ref       Ref    `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	TaskCount int    `json:"tasks"`
}

// Sprint is a time-boxed iteration. Tasks reference it by ID; the sprint
// itself keeps no task list.
type Sprint struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Goal      string `json:"goal"`
	Status    string `json:"status"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}
