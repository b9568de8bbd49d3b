package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
)

const (
	collectionGroups      = "groups"
	collectionMembers     = "members"
	collectionCodes       = "codes"
	collectionAssignments = "assignments"
	collectionPenalties   = "penalties"
	collectionOperators   = "operators"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the indexes the engine invariants depend on. The
// unique (owner_id, viewer_id) index on assignments is what turns a repeat
// pairing into a rejected write instead of a silent double-insert.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	_, err = db.Collection(collectionAssignments).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "viewer_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("assignments pair index: %w", err)
	}

	_, err = db.Collection(collectionMembers).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "display_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("members name index: %w", err)
	}

	_, err = db.Collection(collectionMembers).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "telegram_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("members id index: %w", err)
	}

	return nil
}

func (m *MongoDB) GetGroup(groupId string) (*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	filter := bson.D{{Key: "id", Value: groupId}}
	var group entity.Group
	err = collection.FindOne(m.ctx, filter).Decode(&group)
	if err != nil {
		return nil, m.findError(err)
	}
	return &group, nil
}

func (m *MongoDB) GetGroups() ([]*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var groups []*entity.Group
	err = cursor.All(m.ctx, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (m *MongoDB) SaveGroup(group *entity.Group) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	filter := bson.D{{Key: "id", Value: group.Id}}
	update := bson.D{{Key: "$set", Value: group}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) GetMember(telegramId int64) (*entity.Member, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMembers)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}
	var member entity.Member
	err = collection.FindOne(m.ctx, filter).Decode(&member)
	if err != nil {
		return nil, m.findError(err)
	}
	return &member, nil
}

func (m *MongoDB) GroupMembers(groupId string) ([]*entity.Member, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMembers)
	filter := bson.D{{Key: "group_id", Value: groupId}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var members []*entity.Member
	err = cursor.All(m.ctx, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (m *MongoDB) CountGroupMembers(groupId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMembers)
	return collection.CountDocuments(m.ctx, bson.D{{Key: "group_id", Value: groupId}})
}

func (m *MongoDB) CountMembers() (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMembers)
	return collection.CountDocuments(m.ctx, bson.D{})
}

func (m *MongoDB) AddMember(member *entity.Member) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMembers)
	_, err = collection.InsertOne(m.ctx, member)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrNameTaken
	}
	return err
}

func (m *MongoDB) InsertCodes(codes []*entity.Code) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	documents := make([]interface{}, 0, len(codes))
	for _, code := range codes {
		documents = append(documents, code)
	}
	collection := connection.Database(m.database).Collection(collectionCodes)
	_, err = collection.InsertMany(m.ctx, documents)
	return err
}

func (m *MongoDB) ActiveCodesForDay(groupId string, dayNumber int) ([]*entity.Code, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{
		{Key: "group_id", Value: groupId},
		{Key: "day_number", Value: dayNumber},
		{Key: "status", Value: entity.CodeActive},
	}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var codes []*entity.Code
	err = cursor.All(m.ctx, &codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (m *MongoDB) CodesByOwner(ownerId int64) ([]*entity.Code, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "owner_id", Value: ownerId}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var codes []*entity.Code
	err = cursor.All(m.ctx, &codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (m *MongoDB) SetCodeStatus(codeId string, status entity.CodeStatus) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "id", Value: codeId}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

// SuspendOwnerCodes pulls all of a member's active codes out of rotation and
// stamps the suspension time used by the time-based unlock.
func (m *MongoDB) SuspendOwnerCodes(ownerId int64, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "owner_id", Value: ownerId}, {Key: "status", Value: entity.CodeActive}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.CodeSuspended},
		{Key: "suspended_at", Value: at},
	}}}
	_, err = collection.UpdateMany(m.ctx, filter, update)
	return err
}

// ReactivateSuspendedBefore flips suspended codes back to active once their
// suspension window has elapsed. Returns the owners whose codes came back.
func (m *MongoDB) ReactivateSuspendedBefore(cutoff time.Time) ([]int64, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{
		{Key: "status", Value: entity.CodeSuspended},
		{Key: "suspended_at", Value: bson.D{{Key: "$lte", Value: cutoff}}},
	}

	owners, err := collection.Distinct(m.ctx, "owner_id", filter)
	if err != nil {
		return nil, err
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "status", Value: entity.CodeActive}}},
		{Key: "$unset", Value: bson.D{{Key: "suspended_at", Value: ""}}},
	}
	_, err = collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return nil, err
	}

	ownerIds := make([]int64, 0, len(owners))
	for _, o := range owners {
		if id, ok := o.(int64); ok {
			ownerIds = append(ownerIds, id)
		}
	}
	return ownerIds, nil
}

// MaxAssignedDay returns the highest cycle day that already has assignment
// rows in the group, zero when nothing was distributed yet. Day advancement
// derives from this, not from wall-clock counting.
func (m *MongoDB) MaxAssignedDay(groupId string) (int, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	filter := bson.D{{Key: "group_id", Value: groupId}}
	opts := options.FindOne().SetSort(bson.D{{Key: "day_number", Value: -1}})
	var assignment entity.Assignment
	err = collection.FindOne(m.ctx, filter, opts).Decode(&assignment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mongodb find: %w", err)
	}
	return assignment.DayNumber, nil
}

func (m *MongoDB) HasPriorAssignment(ownerId, viewerId int64) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	filter := bson.D{{Key: "owner_id", Value: ownerId}, {Key: "viewer_id", Value: viewerId}}
	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) InsertAssignment(assignment *entity.Assignment) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	_, err = collection.InsertOne(m.ctx, assignment)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrDuplicatePair
	}
	return err
}

func (m *MongoDB) CountAssignmentsForDate(codeId, date string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	return collection.CountDocuments(m.ctx, bson.D{{Key: "code_id", Value: codeId}, {Key: "date", Value: date}})
}

// HasAssignmentsOn reports whether the group already has freshly distributed
// rows for the date, the engine's same-day idempotency marker. Carried rows
// are excluded: a re-presented miss must not block the day's distribution.
func (m *MongoDB) HasAssignmentsOn(groupId, date string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	count, err := collection.CountDocuments(m.ctx, bson.D{{Key: "group_id", Value: groupId}, {Key: "date", Value: date}, {Key: "carried", Value: false}})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) UnusedAssignmentsForDate(date string) ([]*entity.Assignment, error) {
	return m.findAssignments(bson.D{{Key: "date", Value: date}, {Key: "used", Value: false}})
}

func (m *MongoDB) UnconfirmedAssignmentsForDate(date string) ([]*entity.Assignment, error) {
	return m.findAssignments(bson.D{{Key: "date", Value: date}, {Key: "used", Value: true}, {Key: "verified", Value: false}})
}

func (m *MongoDB) ViewerAssignments(viewerId int64, date string) ([]*entity.Assignment, error) {
	return m.findAssignments(bson.D{{Key: "viewer_id", Value: viewerId}, {Key: "date", Value: date}})
}

// OwnerUnconfirmed lists usage claims on the owner's codes still awaiting
// the owner's confirmation.
func (m *MongoDB) OwnerUnconfirmed(ownerId int64) ([]*entity.Assignment, error) {
	return m.findAssignments(bson.D{{Key: "owner_id", Value: ownerId}, {Key: "used", Value: true}, {Key: "verified", Value: false}})
}

func (m *MongoDB) findAssignments(filter bson.D) ([]*entity.Assignment, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var assignments []*entity.Assignment
	err = cursor.All(m.ctx, &assignments)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (m *MongoDB) GetAssignment(assignmentId string) (*entity.Assignment, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	filter := bson.D{{Key: "id", Value: assignmentId}}
	var assignment entity.Assignment
	err = collection.FindOne(m.ctx, filter).Decode(&assignment)
	if err != nil {
		return nil, m.findError(err)
	}
	return &assignment, nil
}

// RescheduleAssignment moves an assignment row to a new date. Carry-forward
// of a missed code is a date move, never a second row, so the lifetime
// one-row-per-pair property holds.
func (m *MongoDB) RescheduleAssignment(assignmentId, date string) error {
	return m.updateAssignment(assignmentId, bson.D{{Key: "date", Value: date}, {Key: "carried", Value: true}})
}

func (m *MongoDB) MarkUsed(assignmentId string) error {
	return m.updateAssignment(assignmentId, bson.D{{Key: "used", Value: true}})
}

func (m *MongoDB) MarkVerified(assignmentId string) error {
	return m.updateAssignment(assignmentId, bson.D{{Key: "verified", Value: true}})
}

func (m *MongoDB) MarkPaused(assignmentId string) error {
	return m.updateAssignment(assignmentId, bson.D{{Key: "marked_paused", Value: true}})
}

func (m *MongoDB) updateAssignment(assignmentId string, fields bson.D) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAssignments)
	filter := bson.D{{Key: "id", Value: assignmentId}}
	update := bson.D{{Key: "$set", Value: fields}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) GetPenalty(memberId int64) (*entity.PenaltyRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionPenalties)
	filter := bson.D{{Key: "member_id", Value: memberId}}
	var record entity.PenaltyRecord
	err = collection.FindOne(m.ctx, filter).Decode(&record)
	if err != nil {
		return nil, m.findError(err)
	}
	return &record, nil
}

func (m *MongoDB) SavePenalty(record *entity.PenaltyRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionPenalties)
	filter := bson.D{{Key: "member_id", Value: record.MemberId}}
	update := bson.D{{Key: "$set", Value: record}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) ResetPenalty(memberId int64) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionPenalties)
	filter := bson.D{{Key: "member_id", Value: memberId}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "miss_streak", Value: 0},
		{Key: "suspended", Value: false},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

// PurgeMember removes the member and every row referencing them, in
// dependency order. A partial failure here is the one dangerous spot in the
// system, so each step's error carries enough context to reconcile by hand.
func (m *MongoDB) PurgeMember(memberId int64) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	_, err = db.Collection(collectionAssignments).DeleteMany(m.ctx, bson.D{
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "owner_id", Value: memberId}},
			bson.D{{Key: "viewer_id", Value: memberId}},
		}},
	})
	if err != nil {
		return fmt.Errorf("purge member %d: assignments: %w", memberId, err)
	}

	_, err = db.Collection(collectionCodes).DeleteMany(m.ctx, bson.D{{Key: "owner_id", Value: memberId}})
	if err != nil {
		return fmt.Errorf("purge member %d: codes: %w", memberId, err)
	}

	_, err = db.Collection(collectionPenalties).DeleteMany(m.ctx, bson.D{{Key: "member_id", Value: memberId}})
	if err != nil {
		return fmt.Errorf("purge member %d: penalties: %w", memberId, err)
	}

	_, err = db.Collection(collectionMembers).DeleteOne(m.ctx, bson.D{{Key: "telegram_id", Value: memberId}})
	if err != nil {
		return fmt.Errorf("purge member %d: member row: %w", memberId, err)
	}

	return nil
}

// WipeCycle clears all codes and assignments at the monthly reset. Members,
// groups and penalty records survive.
func (m *MongoDB) WipeCycle() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	_, err = db.Collection(collectionAssignments).DeleteMany(m.ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("wipe assignments: %w", err)
	}
	_, err = db.Collection(collectionCodes).DeleteMany(m.ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("wipe codes: %w", err)
	}
	return nil
}

func (m *MongoDB) GetOperator(token string) (*entity.Operator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOperators)
	filter := bson.D{{Key: "token", Value: token}}
	var operator entity.Operator
	err = collection.FindOne(m.ctx, filter).Decode(&operator)
	if err != nil {
		return nil, m.findError(err)
	}
	return &operator, nil
}
