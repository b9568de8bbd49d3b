package core

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
)

type fakeDB struct {
	groups      map[string]*entity.Group
	members     map[int64]*entity.Member
	codes       []*entity.Code
	assignments map[string]*entity.Assignment
	penalties   map[int64]*entity.PenaltyRecord
	operators   map[string]*entity.Operator
	purged      []int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		groups:      make(map[string]*entity.Group),
		members:     make(map[int64]*entity.Member),
		assignments: make(map[string]*entity.Assignment),
		penalties:   make(map[int64]*entity.PenaltyRecord),
		operators:   make(map[string]*entity.Operator),
	}
}

func (f *fakeDB) GetGroup(groupId string) (*entity.Group, error) {
	g, ok := f.groups[groupId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (f *fakeDB) GetGroups() ([]*entity.Group, error) {
	var result []*entity.Group
	for _, g := range f.groups {
		copied := *g
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeDB) SaveGroup(group *entity.Group) error {
	copied := *group
	f.groups[group.Id] = &copied
	return nil
}

func (f *fakeDB) GetMember(telegramId int64) (*entity.Member, error) {
	m, ok := f.members[telegramId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return m, nil
}

func (f *fakeDB) CountGroupMembers(groupId string) (int64, error) {
	var count int64
	for _, m := range f.members {
		if m.GroupId == groupId {
			count++
		}
	}
	return count, nil
}

func (f *fakeDB) CountMembers() (int64, error) {
	return int64(len(f.members)), nil
}

func (f *fakeDB) AddMember(member *entity.Member) error {
	for _, m := range f.members {
		if m.GroupId == member.GroupId && m.DisplayName == member.DisplayName {
			return entity.ErrNameTaken
		}
	}
	f.members[member.TelegramId] = member
	return nil
}

func (f *fakeDB) InsertCodes(codes []*entity.Code) error {
	f.codes = append(f.codes, codes...)
	return nil
}

func (f *fakeDB) CodesByOwner(ownerId int64) ([]*entity.Code, error) {
	var result []*entity.Code
	for _, c := range f.codes {
		if c.OwnerId == ownerId {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeDB) GetAssignment(assignmentId string) (*entity.Assignment, error) {
	a, ok := f.assignments[assignmentId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return a, nil
}

func (f *fakeDB) ViewerAssignments(viewerId int64, date string) ([]*entity.Assignment, error) {
	var result []*entity.Assignment
	for _, a := range f.assignments {
		if a.ViewerId == viewerId && a.Date == date {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeDB) OwnerUnconfirmed(ownerId int64) ([]*entity.Assignment, error) {
	var result []*entity.Assignment
	for _, a := range f.assignments {
		if a.OwnerId == ownerId && a.Used && !a.Verified {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeDB) MarkUsed(assignmentId string) error {
	a, ok := f.assignments[assignmentId]
	if !ok {
		return entity.ErrNotFound
	}
	a.Used = true
	return nil
}

func (f *fakeDB) MarkVerified(assignmentId string) error {
	a, ok := f.assignments[assignmentId]
	if !ok {
		return entity.ErrNotFound
	}
	a.Verified = true
	return nil
}

func (f *fakeDB) MarkPaused(assignmentId string) error {
	a, ok := f.assignments[assignmentId]
	if !ok {
		return entity.ErrNotFound
	}
	a.MarkedPaused = true
	return nil
}

func (f *fakeDB) GetPenalty(memberId int64) (*entity.PenaltyRecord, error) {
	record, ok := f.penalties[memberId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return record, nil
}

func (f *fakeDB) ResetPenalty(memberId int64) error {
	if record, ok := f.penalties[memberId]; ok {
		record.MissStreak = 0
		record.Suspended = false
	}
	return nil
}

func (f *fakeDB) PurgeMember(memberId int64) error {
	f.purged = append(f.purged, memberId)
	delete(f.members, memberId)
	return nil
}

func (f *fakeDB) GetOperator(token string) (*entity.Operator, error) {
	op, ok := f.operators[token]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return op, nil
}

func testConf() *config.Config {
	return &config.Config{
		Env: "local",
		Defaults: config.GroupDefaults{
			MaxMembers:       3,
			DistributionDays: 3,
			DailyViewLimit:   2,
			SendTime:         "10:00",
		},
	}
}

func testCore(db *fakeDB) *Core {
	return New(db, testConf(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterMember(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "test"}
	c := testCore(db)

	member, err := c.RegisterMember(100, "g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "g1", member.GroupId)

	_, err = c.RegisterMember(100, "g1", "alice2")
	assert.Error(t, err, "group assignment is immutable, no re-registration")

	_, err = c.RegisterMember(101, "g1", "alice")
	assert.ErrorIs(t, err, entity.ErrNameTaken)

	_, err = c.RegisterMember(102, "missing", "bob")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRegisterMember_GroupCapacity(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "test"} // MaxMembers falls back to 3
	c := testCore(db)

	for i, name := range []string{"a", "b", "c"} {
		_, err := c.RegisterMember(int64(100+i), "g1", name)
		require.NoError(t, err)
	}
	_, err := c.RegisterMember(200, "g1", "d")
	assert.ErrorIs(t, err, entity.ErrGroupFull)
}

func TestUploadCodes(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "test"}
	db.members[100] = &entity.Member{TelegramId: 100, GroupId: "g1", DisplayName: "alice"}
	c := testCore(db)

	codes, err := c.UploadCodes(100, []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)
	require.Len(t, codes, 3)
	for i, code := range codes {
		assert.Equal(t, i+1, code.DayNumber, "codes are numbered in upload order")
		assert.Equal(t, 2, code.ViewsPerDay, "view limit frozen from group setting")
		assert.Equal(t, entity.CodeActive, code.Status)
	}
}

func TestUploadCodes_WrongBatchSize(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "test"}
	db.members[100] = &entity.Member{TelegramId: 100, GroupId: "g1", DisplayName: "alice"}
	c := testCore(db)

	_, err := c.UploadCodes(100, []string{"AAA"})
	assert.ErrorContains(t, err, "expected 3 codes")

	_, err = c.UploadCodes(100, []string{"AAA", "", "CCC"})
	assert.Error(t, err)
}

func TestMarkUsed_ResetsStreakToZero(t *testing.T) {
	db := newFakeDB()
	db.assignments["a1"] = &entity.Assignment{Id: "a1", OwnerId: 1, ViewerId: 2}
	db.penalties[2] = &entity.PenaltyRecord{MemberId: 2, MissStreak: 2, Suspended: true}
	c := testCore(db)

	require.NoError(t, c.MarkUsed(2, "a1"))

	assert.True(t, db.assignments["a1"].Used)
	assert.Equal(t, 0, db.penalties[2].MissStreak, "any success resets the streak to exactly zero")
}

func TestMarkUsed_WrongViewerRejected(t *testing.T) {
	db := newFakeDB()
	db.assignments["a1"] = &entity.Assignment{Id: "a1", OwnerId: 1, ViewerId: 2}
	c := testCore(db)

	err := c.MarkUsed(99, "a1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.False(t, db.assignments["a1"].Used)
}

func TestConfirm_ResetsOwnerStreak(t *testing.T) {
	db := newFakeDB()
	db.assignments["a1"] = &entity.Assignment{Id: "a1", OwnerId: 1, ViewerId: 2, Used: true}
	db.penalties[1] = &entity.PenaltyRecord{MemberId: 1, MissStreak: 1}
	c := testCore(db)

	require.NoError(t, c.Confirm(1, "a1"))

	assert.True(t, db.assignments["a1"].Verified)
	assert.Equal(t, 0, db.penalties[1].MissStreak)
}

func TestGroupSettings_AppliesDefaults(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "test", DailyViewLimit: 9}
	c := testCore(db)

	group, err := c.GroupSettings("g1")
	require.NoError(t, err)
	assert.Equal(t, 9, group.DailyViewLimit, "explicit setting wins")
	assert.Equal(t, 3, group.DistributionDays, "missing fields fall back to config")
	assert.Equal(t, "10:00", group.SendTime)
}

func TestUpdateGroupSettings_RejectsBadSendTime(t *testing.T) {
	db := newFakeDB()
	c := testCore(db)

	err := c.UpdateGroupSettings(&entity.Group{Id: "g1", Name: "test", SendTime: "25:99"})
	assert.Error(t, err)

	err = c.UpdateGroupSettings(&entity.Group{Id: "g1", Name: "test", SendTime: "09:30"})
	assert.NoError(t, err)
}

func TestMemberStatus(t *testing.T) {
	db := newFakeDB()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	db.members[2] = &entity.Member{TelegramId: 2, GroupId: "g1", DisplayName: "bob"}
	db.assignments["a1"] = &entity.Assignment{Id: "a1", OwnerId: 1, ViewerId: 2, Date: "2026-09-01"}
	db.codes = append(db.codes,
		&entity.Code{Id: "c1", OwnerId: 2, Status: entity.CodeActive},
		&entity.Code{Id: "c2", OwnerId: 2, Status: entity.CodeSuspended},
	)
	db.penalties[2] = &entity.PenaltyRecord{MemberId: 2, MissStreak: 1}
	c := testCore(db)

	status, err := c.MemberStatus(2, now)
	require.NoError(t, err)
	assert.Len(t, status.Today, 1)
	assert.Equal(t, 2, status.OwnedCodes)
	assert.Equal(t, 1, status.Suspended)
	assert.Equal(t, 1, status.MissStreak)
}

func TestEngineStatus(t *testing.T) {
	db := newFakeDB()
	db.groups["g1"] = &entity.Group{Id: "g1", Name: "one"}
	db.groups["g2"] = &entity.Group{Id: "g2", Name: "two"}
	db.members[1] = &entity.Member{TelegramId: 1, GroupId: "g1"}
	c := testCore(db)

	status, err := c.EngineStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.Groups)
	assert.Equal(t, int64(1), status.Members)
	assert.GreaterOrEqual(t, status.UptimeHours, 0.0)
}
