package mitigation

import "fmt"

func assessDistrictPrompt(station string, temperature float64) string {
	return fmt.Sprintf(`
        You are an AI Urban Planner for Singapore (URA/HDB).

        SITUATION:
        Real-time sensors detect a heat hotspot at **%s** measuring **%.1f°C**.

        TASK:
        1. Analyze the severity (Is this normal for Singapore? Is it a heatwave?).
        2. Recommend immediate district-level interventions (e.g., "Deploy mobile misting units", "Check district cooling load", "Issue health advisory").
        3. Suggest long-term mitigation for this specific area.

        OUTPUT FORMAT:
        Use Markdown. Keep it brief (bullet points). Tone: Professional, Urgent, Strategic.
        `, station, temperature)
}

func fallbackAssessment(station string, temperature float64) string {
	return fmt.Sprintf(`
### **⚠️ AI Rate Notice**
*Gemini is experiencing high traffic. Showing simulated analysis for **%s**.*

### **1. 🌡️ Severity Analysis**
*   **Status**: Moderate to High Heat Stress.
*   **Context**: Temperature of **%.1f°C** is above the district norm for this time of day.

### **2. 🚀 Immediate Interventions**
*   **Deploy**: Mobile cooling stations to bus interchanges in the area.
*   **Alert**: Send hydration reminders to community gardening groups via app.
*   **Monitor**: Increase sensor polling rate to 5-minute intervals.

### **3. 🌳 Long-Term Strategy**
*   **Green Facades**: Mandate vertical greening for upcoming BTO projects in %s.
*   **Wind Corridors**: Review urban canyon effects in next Master Plan review.
`, station, temperature, station)
}

func offlineNotice(station string, err error) string {
	return fmt.Sprintf("**System Alert:** Gemini is currently offline (%v). Manual monitoring required for %s.", err, station)
}
