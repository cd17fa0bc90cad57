package status

// Badge is how a status is presented to users.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var badges = map[Status]Badge{
	Unknown:   {Label: "Unknown", Color: "gray", Icon: "help-circle"},
	Pending:   {Label: "Pending", Color: "amber", Icon: "clock"},
	Approved:  {Label: "Approved", Color: "green", Icon: "check-circle"},
	Rejected:  {Label: "Rejected", Color: "red", Icon: "x-circle"},
	Cancelled: {Label: "Cancelled", Color: "slate", Icon: "slash"},
	Active:    {Label: "Active", Color: "green", Icon: "activity"},
	Inactive:  {Label: "Inactive", Color: "gray", Icon: "pause-circle"},
	Open:      {Label: "Open", Color: "orange", Icon: "alert-triangle"},
	Resolved:  {Label: "Resolved", Color: "blue", Icon: "check-square"},
}

// Badge returns the presentation of s.
func (s Status) Badge() Badge {
	if b, ok := badges[s]; ok {
		return b
	}
	return badges[Unknown]
}
