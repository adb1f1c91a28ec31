package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLastWriteWins(t *testing.T) {
	rec := &ClinicalRecord{}
	rec.Merge(&ClinicalRecord{
		BriefTitle: Str("First"),
		Acronym:    Str("ABC"),
		Conditions: []string{"Asthma"},
	})
	rec.Merge(&ClinicalRecord{
		BriefTitle: Str("Second"),
		Enrollment: Str("120"),
	})

	assert.Equal(t, "Second", *rec.BriefTitle)
	assert.Equal(t, "ABC", *rec.Acronym, "unset keys are left alone")
	assert.Equal(t, []string{"Asthma"}, rec.Conditions)
	assert.Equal(t, "120", *rec.Enrollment)
	assert.Nil(t, rec.PrimaryOutcomes)
}

func TestMergeNilFragment(t *testing.T) {
	rec := &ClinicalRecord{OrgStudyID: Str("X-1")}
	rec.Merge(nil)
	assert.Equal(t, "X-1", *rec.OrgStudyID)
}

func TestEmptyVersusAbsentSequencesSurviveJSON(t *testing.T) {
	rec := &ClinicalRecord{PrimaryOutcomes: []Outcome{}}

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var back ClinicalRecord
	require.NoError(t, json.Unmarshal(b, &back))

	assert.NotNil(t, back.PrimaryOutcomes)
	assert.Empty(t, back.PrimaryOutcomes)
	assert.Nil(t, back.SecondaryOutcomes)
}

func TestStrHelpers(t *testing.T) {
	assert.Equal(t, "", StrOrEmpty(nil))
	assert.Equal(t, "def", StrOr(nil, "def"))
	assert.Equal(t, "def", StrOr(Str(""), "def"))
	assert.Equal(t, "v", StrOr(Str("v"), "def"))
}
