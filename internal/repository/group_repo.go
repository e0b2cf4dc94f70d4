package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

// GroupRepository resolves student group membership.
type GroupRepository interface {
	// GroupsForStudent maps group set ID to the student's group in that set.
	GroupsForStudent(ctx context.Context, studentID uint, groupSetIDs []uint) (map[uint]uint, error)
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs a GORM-backed repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

type groupMembershipRow struct {
	GroupSetID uint
	GroupID    uint
}

func (r *groupRepository) GroupsForStudent(ctx context.Context, studentID uint, groupSetIDs []uint) (map[uint]uint, error) {
	memberships := make(map[uint]uint)
	if len(groupSetIDs) == 0 {
		return memberships, nil
	}

	var rows []groupMembershipRow
	if err := r.db.WithContext(ctx).
		Table("group_members").
		Select("student_groups.group_set_id AS group_set_id, group_members.group_id AS group_id").
		Joins("JOIN student_groups ON student_groups.id = group_members.group_id").
		Where("group_members.student_id = ? AND student_groups.group_set_id IN ?", studentID, groupSetIDs).
		Order("group_members.group_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		if _, exists := memberships[row.GroupSetID]; !exists {
			memberships[row.GroupSetID] = row.GroupID
		}
	}
	return memberships, nil
}

func (r *groupRepository) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
