// Package mongo implements store.Store on MongoDB using the official v2 driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	depotstore "github.com/xraph/depot/store"
)

// Collection name constants.
const (
	colCustomers      = "depot_customers"
	colBookings       = "depot_bookings"
	colCylinders      = "depot_cylinders"
	colStoves         = "depot_stoves"
	colLendingRecords = "depot_lending_records"
)

// compile-time interface check
var _ depotstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to uri and uses the named database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("depot/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("depot/mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// NewFromDatabase wraps a database handle owned by the caller. Close is then
// a no-op.
func NewFromDatabase(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all depot collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: indexes on %s: %v", depot.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client when the store opened it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := s.db.Collection(colCustomers).InsertOne(ctx, toCustomerModel(c))
	return insertErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	var m customerModel
	err := s.db.Collection(colCustomers).FindOne(ctx, bson.M{"_id": customerID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, depot.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("depot/mongo: get customer: %w", err)
	}
	return fromCustomerModel(&m)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	m := toCustomerModel(c)
	res, err := s.db.Collection(colCustomers).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("depot/mongo: update customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return depot.ErrCustomerNotFound
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) error {
	return deleteOne(ctx, s.db.Collection(colCustomers), customerID.String(), depot.ErrCustomerNotFound)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	filter := bson.M{}
	if opts.OwnerKey != "" {
		filter["owner_key"] = opts.OwnerKey
	}
	if opts.Category != "" {
		filter["category"] = string(opts.Category)
	}
	if opts.Subsidy != nil {
		filter["subsidy"] = *opts.Subsidy
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"phone": re},
			bson.M{"book_id": re},
		}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	paginate(findOpts, opts.Limit, opts.Offset)

	var models []customerModel
	if err := findAll(ctx, s.db.Collection(colCustomers), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("depot/mongo: list customers: %w", err)
	}
	return convert(models, fromCustomerModel)
}

func (s *Store) FindCustomerByPhone(ctx context.Context, ownerKey, phone string) (*customer.Customer, error) {
	return s.findCustomer(ctx, bson.M{"owner_key": ownerKey, "phone": phone})
}

func (s *Store) FindCustomerByBookID(ctx context.Context, ownerKey, bookID string) (*customer.Customer, error) {
	return s.findCustomer(ctx, bson.M{
		"owner_key": ownerKey,
		"book_id":   bookID,
		"category":  string(customer.CategoryDomestic),
	})
}

func (s *Store) findCustomer(ctx context.Context, filter bson.M) (*customer.Customer, error) {
	var m customerModel
	err := s.db.Collection(colCustomers).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, depot.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("depot/mongo: find customer: %w", err)
	}
	return fromCustomerModel(&m)
}

// ==================== Booking Store ====================

func (s *Store) CreateBooking(ctx context.Context, b *booking.Booking) error {
	_, err := s.db.Collection(colBookings).InsertOne(ctx, toBookingModel(b))
	return insertErr(err)
}

func (s *Store) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	var m bookingModel
	err := s.db.Collection(colBookings).FindOne(ctx, bson.M{"_id": bookingID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, depot.ErrBookingNotFound
		}
		return nil, fmt.Errorf("depot/mongo: get booking: %w", err)
	}
	return fromBookingModel(&m)
}

func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	m := toBookingModel(b)
	res, err := s.db.Collection(colBookings).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("depot/mongo: update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return depot.ErrBookingNotFound
	}
	return nil
}

func (s *Store) DeleteBooking(ctx context.Context, bookingID id.BookingID) error {
	return deleteOne(ctx, s.db.Collection(colBookings), bookingID.String(), depot.ErrBookingNotFound)
}

func (s *Store) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	filter := bson.M{}
	if opts.OwnerKey != "" {
		filter["owner_key"] = opts.OwnerKey
	}
	if !opts.CustomerID.IsNil() {
		filter["customer_id"] = opts.CustomerID.String()
	}
	if opts.DeliveryStatus != "" {
		filter["status"] = string(opts.DeliveryStatus)
	}
	if opts.PaymentStatus != "" {
		filter["payment_status"] = string(opts.PaymentStatus)
	}
	if between := timeRange(opts.From, opts.To); between != nil {
		filter["delivery_date"] = between
	}
	if !opts.UpdatedBefore.IsZero() {
		filter["updated_at"] = bson.M{"$lte": opts.UpdatedBefore}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	paginate(findOpts, opts.Limit, opts.Offset)

	var models []bookingModel
	if err := findAll(ctx, s.db.Collection(colBookings), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("depot/mongo: list bookings: %w", err)
	}
	return convert(models, fromBookingModel)
}

// ==================== Cylinder Store ====================

func (s *Store) AddCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int, at time.Time) ([]id.CylinderID, error) {
	ids := make([]id.CylinderID, 0, qty)
	docs := make([]any, 0, qty)
	for range qty {
		cid := id.NewCylinderID()
		ids = append(ids, cid)
		docs = append(docs, cylinderModel{
			ID:        cid.String(),
			OwnerKey:  ownerKey,
			Type:      key.Type,
			Status:    string(key.Status),
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	if len(docs) == 0 {
		return ids, nil
	}
	if _, err := s.db.Collection(colCylinders).InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("depot/mongo: add cylinders: %w", err)
	}
	return ids, nil
}

func (s *Store) CountCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey) (int, error) {
	n, err := s.db.Collection(colCylinders).CountDocuments(ctx, bucket(ownerKey, key))
	if err != nil {
		return 0, fmt.Errorf("depot/mongo: count cylinders: %w", err)
	}
	return int(n), nil
}

// RemoveCylinders claims the oldest units one at a time. Each claim is an
// atomic FindOneAndDelete; on a shortfall the claimed units are put back.
func (s *Store) RemoveCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	col := s.db.Collection(colCylinders)
	oldest := options.FindOneAndDelete().SetSort(bson.D{{Key: "_id", Value: 1}})

	taken := make([]cylinderModel, 0, qty)
	for range qty {
		var m cylinderModel
		err := col.FindOneAndDelete(ctx, bucket(ownerKey, key), oldest).Decode(&m)
		if isNoDocuments(err) {
			break
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("depot/mongo: remove cylinders: %w", err), restore(ctx, col, taken))
		}
		taken = append(taken, m)
	}

	if len(taken) < qty {
		shortErr := &depot.InsufficientStockError{
			Type:      key.Type,
			Status:    key.Status,
			Requested: qty,
			Available: len(taken),
		}
		if err := restore(ctx, col, taken); err != nil {
			return nil, errors.Join(shortErr, err)
		}
		return nil, shortErr
	}
	return cylinderIDs(taken)
}

// TransitionCylinders flips the oldest units one at a time and reverts the
// flipped ones on a shortfall.
func (s *Store) TransitionCylinders(ctx context.Context, ownerKey, cylinderType string, from, to inventory.CylinderStatus, qty int, at time.Time) ([]id.CylinderID, error) {
	col := s.db.Collection(colCylinders)
	key := inventory.CylinderKey{Type: cylinderType, Status: from}
	oldest := options.FindOneAndUpdate().SetSort(bson.D{{Key: "_id", Value: 1}})
	set := bson.M{"$set": bson.M{"status": string(to), "updated_at": at}}

	taken := make([]cylinderModel, 0, qty)
	for range qty {
		var m cylinderModel
		err := col.FindOneAndUpdate(ctx, bucket(ownerKey, key), set, oldest).Decode(&m)
		if isNoDocuments(err) {
			break
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("depot/mongo: transition cylinders: %w", err), revert(ctx, col, taken))
		}
		taken = append(taken, m)
	}

	if len(taken) < qty {
		shortErr := &depot.InsufficientStockError{
			Type:      cylinderType,
			Status:    from,
			Requested: qty,
			Available: len(taken),
		}
		if err := revert(ctx, col, taken); err != nil {
			return nil, errors.Join(shortErr, err)
		}
		return nil, shortErr
	}
	return cylinderIDs(taken)
}

func (s *Store) CountAllCylinders(ctx context.Context, ownerKey string) (map[inventory.CylinderKey]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_key": ownerKey}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"type": "$type", "status": "$status"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.db.Collection(colCylinders).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("depot/mongo: count all cylinders: %w", err)
	}

	var groups []struct {
		Key struct {
			Type   string `bson:"type"`
			Status string `bson:"status"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("depot/mongo: count all cylinders: %w", err)
	}

	counts := make(map[inventory.CylinderKey]int, len(groups))
	for _, g := range groups {
		counts[inventory.CylinderKey{Type: g.Key.Type, Status: inventory.CylinderStatus(g.Key.Status)}] = g.Count
	}
	return counts, nil
}

func bucket(ownerKey string, key inventory.CylinderKey) bson.M {
	return bson.M{"owner_key": ownerKey, "type": key.Type, "status": string(key.Status)}
}

// restore re-inserts units claimed by an aborted removal.
func restore(ctx context.Context, col *mongo.Collection, taken []cylinderModel) error {
	if len(taken) == 0 {
		return nil
	}
	docs := make([]any, len(taken))
	for i := range taken {
		docs[i] = taken[i]
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("depot/mongo: restore cylinders: %w", err)
	}
	return nil
}

// revert puts units flipped by an aborted transition back in their bucket.
// FindOneAndUpdate returns the pre-image, so taken holds the old values.
func revert(ctx context.Context, col *mongo.Collection, taken []cylinderModel) error {
	for _, m := range taken {
		_, err := col.UpdateOne(ctx, bson.M{"_id": m.ID},
			bson.M{"$set": bson.M{"status": m.Status, "updated_at": m.UpdatedAt}})
		if err != nil {
			return fmt.Errorf("depot/mongo: revert cylinders: %w", err)
		}
	}
	return nil
}

func cylinderIDs(models []cylinderModel) ([]id.CylinderID, error) {
	ids := make([]id.CylinderID, 0, len(models))
	for _, m := range models {
		cid, err := id.ParseCylinderID(m.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	return ids, nil
}

// ==================== Stove Store ====================

func (s *Store) CreateStove(ctx context.Context, st *inventory.Stove) error {
	_, err := s.db.Collection(colStoves).InsertOne(ctx, toStoveModel(st))
	return insertErr(err)
}

func (s *Store) GetStove(ctx context.Context, stoveID id.StoveID) (*inventory.Stove, error) {
	var m stoveModel
	err := s.db.Collection(colStoves).FindOne(ctx, bson.M{"_id": stoveID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, depot.ErrStoveNotFound
		}
		return nil, fmt.Errorf("depot/mongo: get stove: %w", err)
	}
	return fromStoveModel(&m)
}

func (s *Store) UpdateStove(ctx context.Context, st *inventory.Stove) error {
	m := toStoveModel(st)
	res, err := s.db.Collection(colStoves).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("depot/mongo: update stove: %w", err)
	}
	if res.MatchedCount == 0 {
		return depot.ErrStoveNotFound
	}
	return nil
}

func (s *Store) DeleteStove(ctx context.Context, stoveID id.StoveID) error {
	return deleteOne(ctx, s.db.Collection(colStoves), stoveID.String(), depot.ErrStoveNotFound)
}

func (s *Store) ListStoves(ctx context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error) {
	filter := bson.M{}
	if opts.OwnerKey != "" {
		filter["owner_key"] = opts.OwnerKey
	}
	if opts.Model != "" {
		filter["model"] = opts.Model
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []stoveModel
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := findAll(ctx, s.db.Collection(colStoves), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("depot/mongo: list stoves: %w", err)
	}
	return convert(models, fromStoveModel)
}

// ==================== Lending Record Store ====================

func (s *Store) CreateLendingRecord(ctx context.Context, r *inventory.LendingRecord) error {
	_, err := s.db.Collection(colLendingRecords).InsertOne(ctx, toLendingModel(r))
	return insertErr(err)
}

func (s *Store) ListLendingRecords(ctx context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error) {
	filter := bson.M{}
	if opts.OwnerKey != "" {
		filter["owner_key"] = opts.OwnerKey
	}
	if !opts.CustomerID.IsNil() {
		filter["borrower.customer_id"] = opts.CustomerID.String()
	}
	if !opts.ReturnedBefore.IsZero() {
		filter["returned_at"] = bson.M{"$lte": opts.ReturnedBefore}
	}

	var models []lendingModel
	findOpts := options.Find().SetSort(bson.D{{Key: "returned_at", Value: -1}})
	if err := findAll(ctx, s.db.Collection(colLendingRecords), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("depot/mongo: list lending records: %w", err)
	}
	return convert(models, fromLendingModel)
}

func (s *Store) DeleteLendingRecord(ctx context.Context, recordID id.LendingRecordID) error {
	return deleteOne(ctx, s.db.Collection(colLendingRecords), recordID.String(), depot.ErrLendingRecordNotFound)
}

// ==================== Helpers ====================

// migrationIndexes returns the index definitions for all depot collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCustomers: {
			{Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "phone", Value: 1}}},
			{
				Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "book_id", Value: 1}},
				Options: options.Index().SetPartialFilterExpression(bson.M{
					"category": string(customer.CategoryDomestic),
				}),
			},
		},
		colBookings: {
			{Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "payment_status", Value: 1}, {Key: "updated_at", Value: 1}}},
		},
		colCylinders: {
			{Keys: bson.D{
				{Key: "owner_key", Value: 1},
				{Key: "type", Value: 1},
				{Key: "status", Value: 1},
				{Key: "_id", Value: 1},
			}},
		},
		colStoves: {
			{Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "model", Value: 1}, {Key: "status", Value: 1}}},
		},
		colLendingRecords: {
			{Keys: bson.D{{Key: "owner_key", Value: 1}, {Key: "returned_at", Value: -1}}},
			{Keys: bson.D{{Key: "borrower.customer_id", Value: 1}}},
		},
	}
}

func findAll(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptionsBuilder, out any) error {
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func convert[M any, T any](models []M, from func(*M) (T, error)) ([]T, error) {
	out := make([]T, 0, len(models))
	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func deleteOne(ctx context.Context, col *mongo.Collection, key string, notFound error) error {
	res, err := col.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("depot/mongo: delete from %s: %w", col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func paginate(opts *options.FindOptionsBuilder, limit, offset int) {
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
}

// timeRange builds an inclusive range filter, or nil when both ends are open.
func timeRange(from, to time.Time) bson.M {
	r := bson.M{}
	if !from.IsZero() {
		r["$gte"] = from
	}
	if !to.IsZero() {
		r["$lte"] = to
	}
	if len(r) == 0 {
		return nil
	}
	return r
}

func insertErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return depot.ErrAlreadyExists
	}
	return fmt.Errorf("depot/mongo: insert: %w", err)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
