package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// ModelsSuite covers validation helpers on the domain types.
type ModelsSuite struct {
	suite.Suite
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

func (s *ModelsSuite) TestValidateSession() {
	tests := []struct {
		name     string
		tool     ToolKind
		duration int
		wantErr  error
	}{
		{"breathing ok", ToolBreathing, 5, nil},
		{"zero minutes ok", ToolSupport, 0, nil},
		{"unknown tool", ToolKind("yoga"), 5, ErrUnknownTool},
		{"empty tool", ToolKind(""), 5, ErrUnknownTool},
		{"negative duration", ToolMood, -1, ErrNegativeDuration},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := ValidateSession(tt.tool, tt.duration)
			if tt.wantErr == nil {
				s.NoError(err)
				return
			}
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *ModelsSuite) TestAllToolKindsValid() {
	s.Len(AllToolKinds, 7)
	for _, k := range AllToolKinds {
		s.True(k.Valid(), string(k))
	}
}

func (s *ModelsSuite) TestWordCount() {
	s.Equal(0, WordCount(""))
	s.Equal(0, WordCount("   \n\t "))
	s.Equal(3, WordCount("  today  was\tgood\n"))
}

func (s *ModelsSuite) TestMoodEntryValidate() {
	s.NoError((&MoodEntry{Mood: 3, Energy: 5}).Validate())

	err := (&MoodEntry{Mood: 0, Energy: 3}).Validate()
	s.True(errors.Is(err, ErrInvalidEntry))

	err = (&MoodEntry{Mood: 3, Energy: 6}).Validate()
	s.ErrorIs(err, ErrInvalidEntry)
	s.Contains(err.Error(), "energy")
}

func (s *ModelsSuite) TestJournalEntryValidate() {
	s.NoError((&JournalEntry{Entry: "hello"}).Validate())
	s.ErrorIs((&JournalEntry{Entry: "  "}).Validate(), ErrInvalidEntry)
}

func (s *ModelsSuite) TestGratitudeEntryValidate() {
	s.NoError((&GratitudeEntry{Items: []string{"", "tea"}, Mood: 4}).Validate())
	s.ErrorIs((&GratitudeEntry{Items: []string{" ", ""}, Mood: 4}).Validate(), ErrInvalidEntry)
	s.ErrorIs((&GratitudeEntry{Items: []string{"tea"}, Mood: 0}).Validate(), ErrInvalidEntry)
}

func (s *ModelsSuite) TestGratitudePatchEmpty() {
	s.True((&GratitudePatch{}).Empty())
	mood := 2
	s.False((&GratitudePatch{Mood: &mood}).Empty())
}

func TestCleanItems(t *testing.T) {
	assert.Equal(t, []string{"family", "sunshine"}, CleanItems([]string{" family ", "", "sunshine", "   "}))
	assert.Empty(t, CleanItems(nil))
}

func TestSameUser(t *testing.T) {
	a := &Identity{UID: "u1"}
	b := &Identity{UID: "u1", Email: "x@y.z"}
	c := &Identity{UID: "u2"}

	assert.True(t, SameUser(nil, nil))
	assert.False(t, SameUser(a, nil))
	assert.True(t, SameUser(a, b))
	assert.False(t, SameUser(a, c))
}

func TestContactKinds(t *testing.T) {
	contacts := []Contact{
		CrisisContact{Name: "Helpline"},
		TherapistContact{Name: "Dr. A"},
		GroupContact{Name: "Circle"},
		OnlineResource{Name: "App"},
	}
	want := []ContactKind{ContactCrisis, ContactTherapist, ContactGroup, ContactOnline}
	for i, c := range contacts {
		assert.Equal(t, want[i], c.Kind())
		assert.NotEmpty(t, c.DisplayName())
	}
}
