package domain

import (
	"strings"

	"github.com/google/uuid"
)

// TicketPathPrefix is the public path stored artifacts are served under.
const TicketPathPrefix = "/tickets/"

func TicketFileName(bookingID uuid.UUID) string {
	return "ticket_" + bookingID.String() + ".pdf"
}

func TicketPath(fileName string) string {
	return TicketPathPrefix + fileName
}

// ParseTicketFileName accepts only names produced by TicketFileName.
func ParseTicketFileName(name string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(name, "ticket_")
	if !ok {
		return uuid.Nil, NotFoundf("ticket not found")
	}
	rest, ok = strings.CutSuffix(rest, ".pdf")
	if !ok {
		return uuid.Nil, NotFoundf("ticket not found")
	}
	id, err := uuid.Parse(rest)
	if err != nil || id.String() != rest {
		return uuid.Nil, NotFoundf("ticket not found")
	}
	return id, nil
}
