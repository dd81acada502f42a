package service

import (
	"errors"
	"testing"

	"github.com/gardenlog/internal/db"
)

// recordingNotifier 捕获好友请求推送调用
type recordingNotifier struct {
	notified []string
}

func (n *recordingNotifier) NotifyFriendRequest(toUser db.User, fromPseudo string) {
	n.notified = append(n.notified, toUser.Pseudo+"<-"+fromPseudo)
}

func TestFriendServiceSendRequest(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")
	bob.PushToken = "token-bob"
	if err := gdb.Save(&bob).Error; err != nil {
		t.Fatalf("failed to save user: %v", err)
	}

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	notifier := &recordingNotifier{}
	friends := NewFriendService(gdb, activity, achievements, notifier)

	if err := friends.SendRequest(alice.ID, "bob"); err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != "bob<-alice" {
		t.Fatalf("expected push to bob, got %v", notifier.notified)
	}

	// 重复发送、自我添加与未知用户
	if err := friends.SendRequest(alice.ID, "bob"); !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
	if err := friends.SendRequest(bob.ID, "alice"); !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists for reverse request, got %v", err)
	}
	if err := friends.SendRequest(alice.ID, "alice"); !errors.Is(err, ErrCannotFriendSelf) {
		t.Fatalf("expected ErrCannotFriendSelf, got %v", err)
	}
	if err := friends.SendRequest(alice.ID, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFriendServiceAcceptFlow(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	friends := NewFriendService(gdb, activity, achievements, nil)

	if err := friends.SendRequest(alice.ID, "bob"); err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}

	requests, err := friends.ListRequests(bob.ID)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if len(requests) != 1 || requests[0].FromPseudo != "alice" {
		t.Fatalf("unexpected requests: %+v", requests)
	}

	// 只有收件人能接受
	if err := friends.Accept(alice.ID, requests[0].ID); !errors.Is(err, ErrFriendRequestNotFound) {
		t.Fatalf("expected ErrFriendRequestNotFound for sender, got %v", err)
	}

	if err := friends.Accept(bob.ID, requests[0].ID); err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}

	// 双方互为好友
	aliceFriends, err := friends.ListFriends(alice.ID)
	if err != nil {
		t.Fatalf("ListFriends returned error: %v", err)
	}
	if len(aliceFriends) != 1 || aliceFriends[0].Pseudo != "bob" {
		t.Fatalf("unexpected alice friends: %+v", aliceFriends)
	}
	bobFriends, err := friends.ListFriends(bob.ID)
	if err != nil {
		t.Fatalf("ListFriends returned error: %v", err)
	}
	if len(bobFriends) != 1 || bobFriends[0].Pseudo != "alice" {
		t.Fatalf("unexpected bob friends: %+v", bobFriends)
	}

	// 双方各有一条 ADD_FRIEND 动态与好友数成就进度
	var count int64
	if err := gdb.Model(&db.GardenActivity{}).Where("type = ?", db.ActivityAddFriend).Count(&count).Error; err != nil {
		t.Fatalf("failed to count activities: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ADD_FRIEND activities, got %d", count)
	}

	// 已是好友后不能重发请求
	if err := friends.SendRequest(alice.ID, "bob"); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}

	// 同一请求不能接受两次
	if err := friends.Accept(bob.ID, requests[0].ID); !errors.Is(err, ErrFriendRequestNotFound) {
		t.Fatalf("expected ErrFriendRequestNotFound on second accept, got %v", err)
	}
}

func TestFriendServiceDecline(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	friends := NewFriendService(gdb, activity, achievements, nil)

	if err := friends.SendRequest(alice.ID, "bob"); err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}
	requests, err := friends.ListRequests(bob.ID)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}

	if err := friends.Decline(bob.ID, requests[0].ID); err != nil {
		t.Fatalf("Decline returned error: %v", err)
	}

	// 拒绝后不建立好友关系，请求列表清空
	bobFriends, err := friends.ListFriends(bob.ID)
	if err != nil {
		t.Fatalf("ListFriends returned error: %v", err)
	}
	if len(bobFriends) != 0 {
		t.Fatalf("expected no friends after decline, got %+v", bobFriends)
	}
	remaining, err := friends.ListRequests(bob.ID)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no pending requests, got %+v", remaining)
	}

	if err := friends.Decline(bob.ID, requests[0].ID); !errors.Is(err, ErrFriendRequestNotFound) {
		t.Fatalf("expected ErrFriendRequestNotFound on second decline, got %v", err)
	}
}

func TestFriendServiceResendAfterDecline(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	friends := NewFriendService(gdb, activity, achievements, nil)

	if err := friends.SendRequest(alice.ID, "bob"); err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}
	requests, err := friends.ListRequests(bob.ID)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if err := friends.Decline(bob.ID, requests[0].ID); err != nil {
		t.Fatalf("Decline returned error: %v", err)
	}

	// 被拒绝后可以再次发送，复用原行重置为待处理
	if err := friends.SendRequest(alice.ID, "bob"); err != nil {
		t.Fatalf("SendRequest after decline returned error: %v", err)
	}
	reopened, err := friends.ListRequests(bob.ID)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if len(reopened) != 1 || reopened[0].FromPseudo != "alice" {
		t.Fatalf("expected reopened request from alice, got %+v", reopened)
	}

	// 每对用户同方向只保留一行
	var rows int64
	if err := gdb.Model(&db.FriendRequest{}).
		Where("from_user_id = ? AND to_user_id = ?", alice.ID, bob.ID).
		Count(&rows).Error; err != nil {
		t.Fatalf("failed to count requests: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 request row, got %d", rows)
	}

	// 重发的请求可以正常接受
	if err := friends.Accept(bob.ID, reopened[0].ID); err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	bobFriends, err := friends.ListFriends(bob.ID)
	if err != nil {
		t.Fatalf("ListFriends returned error: %v", err)
	}
	if len(bobFriends) != 1 || bobFriends[0].Pseudo != "alice" {
		t.Fatalf("unexpected bob friends: %+v", bobFriends)
	}
}
