package core

import "github.com/netopshub/nocmem-go/pkg/storage"

// toStorageMessages converts core messages to their storage representation.
func toStorageMessages(msgs []Message) []storage.Message {
	if msgs == nil {
		return nil
	}
	out := make([]storage.Message, len(msgs))
	for i, m := range msgs {
		out[i] = storage.Message{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

// fromStorageMessages converts storage messages back to core messages.
func fromStorageMessages(msgs []storage.Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{
			Role:      Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

func toStorageShortTerm(rec *ShortTermMemory) *storage.ShortTermMemory {
	if rec == nil {
		return nil
	}
	return &storage.ShortTermMemory{
		UserID:       rec.UserID,
		SessionID:    rec.SessionID,
		Messages:     toStorageMessages(rec.Messages),
		RecentTopics: rec.RecentTopics,
		LastUpdated:  rec.LastUpdated,
	}
}

func fromStorageShortTerm(rec *storage.ShortTermMemory) *ShortTermMemory {
	if rec == nil {
		return nil
	}
	return &ShortTermMemory{
		UserID:       rec.UserID,
		SessionID:    rec.SessionID,
		Messages:     fromStorageMessages(rec.Messages),
		RecentTopics: rec.RecentTopics,
		LastUpdated:  rec.LastUpdated,
	}
}

func toStorageItem(item *LongTermMemoryItem) *storage.LongTermMemoryItem {
	if item == nil {
		return nil
	}
	return &storage.LongTermMemoryItem{
		ID:           item.ID,
		UserID:       item.UserID,
		Content:      item.Content,
		Timestamp:    item.Timestamp,
		Importance:   item.Importance,
		Tags:         item.Tags,
		Type:         string(item.Type),
		UsageCount:   item.UsageCount,
		LastRecalled: item.LastRecalled,
	}
}

func fromStorageItem(item *storage.LongTermMemoryItem) *LongTermMemoryItem {
	if item == nil {
		return nil
	}
	return &LongTermMemoryItem{
		ID:           item.ID,
		UserID:       item.UserID,
		Content:      item.Content,
		Timestamp:    item.Timestamp,
		Importance:   item.Importance,
		Tags:         item.Tags,
		Type:         MemoryType(item.Type),
		UsageCount:   item.UsageCount,
		LastRecalled: item.LastRecalled,
	}
}

func fromStorageItems(items []*storage.LongTermMemoryItem) []*LongTermMemoryItem {
	out := make([]*LongTermMemoryItem, len(items))
	for i, item := range items {
		out[i] = fromStorageItem(item)
	}
	return out
}

func toStorageEpisode(ep *Episode) *storage.Episode {
	if ep == nil {
		return nil
	}
	return &storage.Episode{
		ID:               ep.ID,
		UserID:           ep.UserID,
		SessionID:        ep.SessionID,
		StartTime:        ep.StartTime,
		EndTime:          ep.EndTime,
		Summary:          ep.Summary,
		Messages:         toStorageMessages(ep.Messages),
		RelatedIncidents: ep.RelatedIncidents,
		Topics:           ep.Topics,
		Metadata:         ep.Metadata,
	}
}

func fromStorageEpisode(ep *storage.Episode) *Episode {
	if ep == nil {
		return nil
	}
	return &Episode{
		ID:               ep.ID,
		UserID:           ep.UserID,
		SessionID:        ep.SessionID,
		StartTime:        ep.StartTime,
		EndTime:          ep.EndTime,
		Summary:          ep.Summary,
		Messages:         fromStorageMessages(ep.Messages),
		RelatedIncidents: ep.RelatedIncidents,
		Topics:           ep.Topics,
		Metadata:         ep.Metadata,
	}
}

func toStorageContextual(rec *ContextualMemory) *storage.ContextualMemory {
	if rec == nil {
		return nil
	}
	return &storage.ContextualMemory{
		UserID: rec.UserID,
		Role:   rec.Role,
		Preferences: storage.Preferences{
			CommunicationStyle: rec.Preferences.CommunicationStyle,
			ResponseLength:     rec.Preferences.ResponseLength,
			FavoriteTopics:     rec.Preferences.FavoriteTopics,
		},
		WorkContext: storage.WorkContext{
			CurrentIncident:  rec.WorkContext.CurrentIncident,
			RecentExchanges:  rec.WorkContext.RecentExchanges,
			CommonFaultTypes: rec.WorkContext.CommonFaultTypes,
			FrequentSearches: rec.WorkContext.FrequentSearches,
		},
		LastUpdated: rec.LastUpdated,
	}
}

func fromStorageContextual(rec *storage.ContextualMemory) *ContextualMemory {
	if rec == nil {
		return nil
	}
	return &ContextualMemory{
		UserID: rec.UserID,
		Role:   rec.Role,
		Preferences: Preferences{
			CommunicationStyle: rec.Preferences.CommunicationStyle,
			ResponseLength:     rec.Preferences.ResponseLength,
			FavoriteTopics:     rec.Preferences.FavoriteTopics,
		},
		WorkContext: WorkContext{
			CurrentIncident:  rec.WorkContext.CurrentIncident,
			RecentExchanges:  rec.WorkContext.RecentExchanges,
			CommonFaultTypes: rec.WorkContext.CommonFaultTypes,
			FrequentSearches: rec.WorkContext.FrequentSearches,
		},
		LastUpdated: rec.LastUpdated,
	}
}
