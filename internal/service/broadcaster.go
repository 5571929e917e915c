package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToAssessment(assessmentID string, msgType string, payload interface{})
	BroadcastToAdmins(msgType string, payload interface{})
	DisconnectAssessment(assessmentID string)
}
