package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func testUser() domain.User {
	return domain.User{ID: uuid.New(), Username: "wanjiku", Email: "wanjiku@example.com"}
}

func TestDispatcher_DeliverTicket(t *testing.T) {
	tr := new(mockTransport)
	tr.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.To == "wanjiku@example.com" &&
			msg.ToName == "wanjiku" &&
			msg.Subject == "Your flight Ticket" &&
			msg.Body == "Hello wanjiku,\n\nAttached is your flight booking ticket." &&
			len(msg.Attachments) == 1 &&
			msg.Attachments[0].Filename == "ticket_x.pdf" &&
			string(msg.Attachments[0].Content) == "%PDF"
	})).Return(nil).Once()

	err := NewDispatcher(tr).DeliverTicket(context.Background(), testUser(), domain.ItemTypeFlight, "ticket_x.pdf", []byte("%PDF"))
	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestDispatcher_TransportFailure(t *testing.T) {
	tr := new(mockTransport)
	cause := errors.New("smtp 451")
	tr.On("Send", mock.Anything, mock.Anything).Return(cause)

	err := NewDispatcher(tr).DeliverTicket(context.Background(), testUser(), domain.ItemTypeEvent, "ticket_x.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.ErrorIs(t, err, cause)
}

func TestDispatcher_MissingRecipient(t *testing.T) {
	tr := new(mockTransport)
	err := NewDispatcher(tr).DeliverTicket(context.Background(), domain.User{Username: "x"}, domain.ItemTypeHotel, "ticket_x.pdf", nil)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	tr.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestLogTransport(t *testing.T) {
	err := NewLogTransport(observability.NewNopLogger()).Send(context.Background(), Message{To: "a@b.c", Subject: "s"})
	assert.NoError(t, err)
}
